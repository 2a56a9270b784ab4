// Package extract pulls place attributes out of rendered result views.
//
// Each attribute is produced by an ordered chain of strategies (FirstOf); the
// first strategy to yield a value wins and its name is kept as provenance on
// the resulting places.Field. Extraction never fails a whole record because of
// a single attribute: a chain that runs dry yields places.Missing.
package extract

// Selectors names the CSS selectors the extractors depend on. The lookup
// surface changes its markup often, so every selector is configurable.
type Selectors struct {
	ResultsPanel   string   `mapstructure:"results_panel"`
	CardLink       string   `mapstructure:"card_link"`
	CardContainers []string `mapstructure:"card_containers"`
	CardHeading    string   `mapstructure:"card_heading"`
	TextLeaf       string   `mapstructure:"text_leaf"`
	RatingValue    string   `mapstructure:"rating_value"`
	RatingLabel    string   `mapstructure:"rating_label"`
	Website        string   `mapstructure:"website"`

	DetailCards      []string `mapstructure:"detail_cards"`
	DetailMarker     string   `mapstructure:"detail_marker"`
	DetailNames      []string `mapstructure:"detail_names"`
	DetailAddress    string   `mapstructure:"detail_address"`
	DetailPhone      string   `mapstructure:"detail_phone"`
	DetailWebsite    string   `mapstructure:"detail_website"`
	DetailRatings    []string `mapstructure:"detail_ratings"`
	DetailCategories []string `mapstructure:"detail_categories"`
	DetailOpenStatus []string `mapstructure:"detail_open_status"`
	DetailHours      string   `mapstructure:"detail_hours"`
	DetailHoursText  string   `mapstructure:"detail_hours_text"`

	ShareButton string `mapstructure:"share_button"`
	ShareInput  string `mapstructure:"share_input"`
}

// DefaultSelectors returns the selectors matching the current Google Maps markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultsPanel:   "div[role='main']",
		CardLink:       "a.hfpxzc",
		CardContainers: []string{"div.Nv2PK", "div.m6QErb"},
		CardHeading:    ".qBF1Pd.fontHeadlineSmall",
		TextLeaf:       "span",
		RatingValue:    "span.MW4etd",
		RatingLabel:    "span[aria-label]",
		Website:        "a[data-value='website']",

		DetailCards:  []string{".hfpxzc", ".Nv2PK"},
		DetailMarker: "h1.DUwDvf",
		DetailNames:  []string{"h1.DUwDvf", "h1.fontHeadlineLarge", "div.fontHeadlineLarge span"},
		DetailAddress: "[data-item-id='address']",
		DetailPhone:   "[data-item-id^='phone']",
		DetailWebsite: "a[data-item-id='authority']",
		DetailRatings: []string{
			"div.F7nice > span > span[aria-hidden='true']",
			"span.ceNzKf[aria-label]",
		},
		DetailCategories: []string{
			"button.DkEaL",
			"button[jsaction*='category']",
			"div.fontBodyMedium.dmRWX button",
		},
		DetailOpenStatus: []string{
			"span.ZDu9vd span:nth-child(2)",
			"span[aria-label*='Hours']",
			"span[aria-label*='Jam']",
		},
		DetailHours:     "[data-item-id='oh']",
		DetailHoursText: "div.ZDu9vd span",

		ShareButton: "button[aria-label*='Share'], button[aria-label*='Bagikan']",
		ShareInput:  "input[value]",
	}
}
