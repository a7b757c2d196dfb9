package extract

import "fmt"

// Prompt builds the instruction sent alongside the image. year is used for
// shift dates that do not print a year.
func Prompt(year int) string {
	return fmt.Sprintf(`Extract the work shifts from this image.

Return them in the following JSON format (JSON only, no other explanation):
{
  "shifts": [
    {
      "date": "YYYY-MM-DD",
      "startTime": "HH:MM",
      "endTime": "HH:MM",
      "title": "title of the entry"
    }
  ]
}

Rules:
- date must always be in YYYY-MM-DD format (example: %[1]d-02-10)
- startTime and endTime must be in HH:MM format (examples: 09:00, 17:30)
- if no year is written, treat the date as being in %[1]d
- include every entry in the array when there are several
- return only JSON and do not wrap it in a markdown code block`, year)
}
