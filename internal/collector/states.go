package collector

import "strings"

// stateNames maps postal codes to the state names used in life table file names.
var stateNames = map[string]string{
	"AL": "Alabama",
	"AK": "Alaska",
	"AZ": "Arizona",
	"AR": "Arkansas",
	"CA": "California",
	"CO": "Colorado",
	"CT": "Connecticut",
	"DE": "Delaware",
	"DC": "District Of Columbia",
	"FL": "Florida",
	"GA": "Georgia",
	"HI": "Hawaii",
	"ID": "Idaho",
	"IL": "Illinois",
	"IN": "Indiana",
	"IA": "Iowa",
	"KS": "Kansas",
	"KY": "Kentucky",
	"LA": "Louisiana",
	"ME": "Maine",
	"MD": "Maryland",
	"MA": "Massachusetts",
	"MI": "Michigan",
	"MN": "Minnesota",
	"MS": "Mississippi",
	"MO": "Missouri",
	"MT": "Montana",
	"NE": "Nebraska",
	"NV": "Nevada",
	"NH": "New Hampshire",
	"NJ": "New Jersey",
	"NM": "New Mexico",
	"NY": "New York",
	"NC": "North Carolina",
	"ND": "North Dakota",
	"OH": "Ohio",
	"OK": "Oklahoma",
	"OR": "Oregon",
	"PA": "Pennsylvania",
	"RI": "Rhode Island",
	"SC": "South Carolina",
	"SD": "South Dakota",
	"TN": "Tennessee",
	"TX": "Texas",
	"UT": "Utah",
	"VT": "Vermont",
	"VA": "Virginia",
	"WA": "Washington",
	"WV": "West Virginia",
	"WI": "Wisconsin",
	"WY": "Wyoming",
}

// groupFiles maps canonical groups to the suffix of their table file.
var groupFiles = map[string]string{
	"total":        "total",
	"male":         "male",
	"female":       "female",
	"white":        "white",
	"white-male":   "wm",
	"white-female": "wf",
	"black":        "black",
	"black-male":   "bm",
	"black-female": "bf",
}

// StateName returns the full name for a postal code.
func StateName(region string) (string, bool) {
	name, ok := stateNames[strings.ToUpper(strings.TrimSpace(region))]
	return name, ok
}

// Regions returns the number of known regions.
func Regions() int { return len(stateNames) }

func fileStem(stateName string) string {
	return strings.ReplaceAll(strings.ToLower(stateName), " ", "_")
}
