package proc

type rankTitle struct {
	minLevel int
	title    string
}

// Highest threshold first.
var rankTitles = []rankTitle{
	{375, "Legendary"},
	{300, "Grandmaster"},
	{200, "Master"},
	{100, "Elite"},
	{50, "Veteran"},
	{25, "Experienced"},
	{10, "Regular"},
	{5, "Apprentice"},
}

const baseTitle = "Newcomer"

// TitleForLevel maps a level to its display title. Levels below the first
// threshold, zero included, get the base title.
func TitleForLevel(level int) string {
	for _, t := range rankTitles {
		if level >= t.minLevel {
			return t.title
		}
	}
	return baseTitle
}
