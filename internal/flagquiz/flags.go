package flagquiz

// Flag is one answer option. Code is the ISO 3166-1 alpha-2 country code.
type Flag struct {
	Code    string `json:"code"`
	Country string `json:"country"`
	Emoji   string `json:"emoji"`
}

var DefaultFlags = []Flag{
	{"AR", "Argentina", "🇦🇷"},
	{"AU", "Australia", "🇦🇺"},
	{"BR", "Brazil", "🇧🇷"},
	{"CA", "Canada", "🇨🇦"},
	{"CN", "China", "🇨🇳"},
	{"EG", "Egypt", "🇪🇬"},
	{"FR", "France", "🇫🇷"},
	{"DE", "Germany", "🇩🇪"},
	{"IN", "India", "🇮🇳"},
	{"IT", "Italy", "🇮🇹"},
	{"JP", "Japan", "🇯🇵"},
	{"KE", "Kenya", "🇰🇪"},
	{"MX", "Mexico", "🇲🇽"},
	{"PE", "Peru", "🇵🇪"},
	{"RU", "Russia", "🇷🇺"},
	{"ZA", "South Africa", "🇿🇦"},
	{"KR", "South Korea", "🇰🇷"},
	{"ES", "Spain", "🇪🇸"},
	{"GB", "United Kingdom", "🇬🇧"},
	{"US", "United States", "🇺🇸"},
}

// Scenarios are sentence stems completed by the answer's country name.
var Scenarios = []string{
	"Mei Mei is attending a traditional festival in",
	"Mei Mei is tasting the most famous local dish in",
	"Mei Mei is visiting a UNESCO World Heritage site in",
	"Mei Mei is shopping at a popular market in",
	"Mei Mei is learning about local customs in",
	"Mei Mei is exploring the capital city of",
	"Mei Mei is trying to navigate public transportation in",
	"Mei Mei is attending a local sporting event in",
	"Mei Mei is visiting a famous museum in",
	"Mei Mei is looking for a national park or nature reserve in",
	"Mei Mei is trying to catch a train to another city in",
	"Mei Mei is attending a cultural performance in",
	"Mei Mei is visiting a famous landmark in",
	"Mei Mei is exploring a historic district in",
	"Mei Mei is trying to find a local specialty in",
}
