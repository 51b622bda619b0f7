package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Terms is the raw rule data a Classifier is compiled from. Pattern fields are
// RE2 expressions matched case-insensitively; phrase lists are matched on
// folded lowercase text at word boundaries.
type Terms struct {
	CoreHints       string `yaml:"core_hints"`
	GenericEngineer string `yaml:"generic_engineer"`
	NonSWEEngineer  string `yaml:"non_swe_engineer"`
	SeniorBlock     string `yaml:"senior_block"`
	JuniorTitle     string `yaml:"junior_title"`
	EngineerL2      string `yaml:"engineer_l2"`
	EngineerL3      string `yaml:"engineer_l3"`
	Years0To3       string `yaml:"years_0_to_3"`
	Desc4PlusYears  string `yaml:"desc_4plus_years"`
	DescSeniorWords string `yaml:"desc_senior_words"`

	JuniorDescPositives []string `yaml:"junior_desc_positives"`

	LevelJuniorTitle []string `yaml:"level_junior_title"`
	LevelJuniorDesc  []string `yaml:"level_junior_desc"`
	LevelSenior      []string `yaml:"level_senior"`
	LevelMid         []string `yaml:"level_mid"`

	USPhrases    []string `yaml:"us_phrases"`
	NonUSMarkers []string `yaml:"non_us_markers"`

	EntryExclusionTitle string `yaml:"entry_exclusion_title"`
	EntryInclusionTitle string `yaml:"entry_inclusion_title"`
	PlusYears           string `yaml:"plus_years"`
	EntryMaxPlusYears   int    `yaml:"entry_max_plus_years"`
}

// DefaultTerms returns the built-in rule tables.
func DefaultTerms() Terms {
	return Terms{
		CoreHints:       `\b(software|full[- ]?stack|fullstack|front[- ]?end|frontend|back[- ]?end|backend|platform|web|mobile|ios|android|data|ml|machine\s*learning|devops|swe|sre|site\s*reliability|security|infrastructure)\b`,
		GenericEngineer: `\b(engineer|developer)\b`,
		NonSWEEngineer:  `\b(sales|account|customer|support|success|implementation|solutions|field|pre[- ]?sales|professional\s*services|broadcast|audio|video|a/?v|av)\s+(engineer|engineering)\b`,
		SeniorBlock:     `\b(senior|staff|principal|lead|manager|architect|s\.?r\.?)\b`,
		JuniorTitle:     `\b(junior|new\s*grad|entry[\-\s]*level|associate|(?:software|swe|sde|se|developer|engineer)\s*(?:i|1|i\.))\b`,
		EngineerL2:      `\b((software|swe|sde|se|developer|engineer)\s*(ii|2))\b`,
		EngineerL3:      `\b(iii|3)\b`,
		Years0To3: `(?:\b(?:0|1|2|3)(?:\s*[-–]\s*(?:1|2|3))?\s*(?:years?|yrs?)\s*(?:of\s*experience|exp|yoe)?\b` +
			`|\b(?:0|1|2|3)\s*\+\s*(?:years?|yrs?)\b` +
			`|(?:\bup\s*to|≤|<=)\s*3\s*(?:years?|yrs?)\b` +
			`|\b(?:zero|one|two|three)(?:\s*(?:to|[-–])\s*(?:one|two|three))?\s*(?:years?|yrs?)\b)`,
		Desc4PlusYears: `\b((?:4|5|6|7|8|9|1[0-9])\s*(?:\+|plus)?\s*(?:years?|yrs?)\s*(?:of\s*experience|exp|yoe)?` +
			`|(?:at\s*least\s*|min(?:imum)?\s*of\s*|min\.?\s*)?(?:4|four)\s*(?:years?|yrs?)` +
			`|(?:4|four)\s*[-–]\s*(?:5|six|6|7|seven|8|eight|9|nine|1[0-9])\s*(?:years?|yrs?))\b`,
		DescSeniorWords: `\b(senior|staff|principal|lead|architect|manager)\b`,
		JuniorDescPositives: []string{
			"junior", "new grad", "new college grad", "recent grad", "recent graduate",
			"recent college graduate", "fresh graduate", "entry level", "entry-level",
			"early career", "early in career", "college hire", "university graduate",
			"graduate role", "graduate program", "grad program", "apprentice", "apprenticeship",
			"intern to full-time", "engineer i", "developer i", "software engineer i",
			"level 1", "ic-1", "ic1", "l1",
			"0-1 years", "0–1 years", "0 to 1 years", "0-2 years", "0–2 years", "0 to 2 years",
			"1-2 years", "1–2 years", "1 to 2 years", "1-3 years", "1–3 years", "1 to 3 years",
			"0-3 years", "0–3 years", "0 to 3 years",
			"up to 2 years", "up to 3 years", "under 3 years", "less than 3 years",
			"early talent", "campus hire", "new college graduate", "graduate scheme",
			"rotation program", "rotational program", "entry role",
			"engineer 1", "developer 1", "software engineer 1",
		},
		LevelJuniorTitle: []string{
			"junior", "new grad", "entry level", "entry-level", "associate",
			"engineer i", "software engineer i", "swe i", "se i", "sde i",
			"level 1", " l1", " l-1", " i)", " i ",
		},
		LevelJuniorDesc: []string{
			"junior", "new grad", "recent grad", "entry level", "entry-level", "early career",
			"0-1 years", "0–1 years", "0 to 1 years", "0-2 years", "0–2 years", "0 to 2 years",
			"1-2 years", "1–2 years", "1 to 2 years",
		},
		LevelSenior: []string{"senior", "sr.", "sr ", " staff", "principal", "lead", "architect", " manager"},
		LevelMid: []string{
			"engineer ii", "software engineer ii", "swe ii", "se ii", "sde ii",
			"level 2", " l2", " l-2", " ii)", " ii ",
		},
		USPhrases: []string{
			"united states", "u.s.", "usa", "u.s.a", "us only", "remote - us",
			"remote (us)", "us-remote", "remote/us",
		},
		NonUSMarkers: []string{
			"canada", "canadian", "toronto", "vancouver", "montreal",
			"united kingdom", "uk", "europe", "eu", "emea", "apac", "australia", "new zealand", "nz",
			"mexico", "latam", "brazil", "argentina", "colombia", "chile", "peru",
			"india", "singapore", "philippines",
			"africa", "south africa", "nigeria", "mena", "uae", "dubai", "middle east",
			"germany", "france", "spain", "italy", "portugal", "netherlands", "belgium",
			"sweden", "norway", "denmark", "finland", "ireland", "poland", "romania",
		},
		EntryExclusionTitle: `\b(senior|sr\.?|staff|principal|lead|manager|director|head)\b`,
		EntryInclusionTitle: `\b(intern|new\s*grad|junior|entry|associate)\b`,
		PlusYears:           `\b(\d+)\s*\+\s*(?:years?|yrs?)\b`,
		EntryMaxPlusYears:   2,
	}
}

// LoadTerms reads a YAML rules file and overlays it on DefaultTerms. Fields the
// file leaves empty keep their defaults.
func LoadTerms(path string) (Terms, error) {
	t := DefaultTerms()
	b, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("rules read: %w", err)
	}
	var over Terms
	if err := yaml.Unmarshal(b, &over); err != nil {
		return t, fmt.Errorf("rules parse: %w", err)
	}
	t.overlay(over)
	return t, nil
}

func (t *Terms) overlay(o Terms) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	list := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	str(&t.CoreHints, o.CoreHints)
	str(&t.GenericEngineer, o.GenericEngineer)
	str(&t.NonSWEEngineer, o.NonSWEEngineer)
	str(&t.SeniorBlock, o.SeniorBlock)
	str(&t.JuniorTitle, o.JuniorTitle)
	str(&t.EngineerL2, o.EngineerL2)
	str(&t.EngineerL3, o.EngineerL3)
	str(&t.Years0To3, o.Years0To3)
	str(&t.Desc4PlusYears, o.Desc4PlusYears)
	str(&t.DescSeniorWords, o.DescSeniorWords)
	list(&t.JuniorDescPositives, o.JuniorDescPositives)
	list(&t.LevelJuniorTitle, o.LevelJuniorTitle)
	list(&t.LevelJuniorDesc, o.LevelJuniorDesc)
	list(&t.LevelSenior, o.LevelSenior)
	list(&t.LevelMid, o.LevelMid)
	list(&t.USPhrases, o.USPhrases)
	list(&t.NonUSMarkers, o.NonUSMarkers)
	str(&t.EntryExclusionTitle, o.EntryExclusionTitle)
	str(&t.EntryInclusionTitle, o.EntryInclusionTitle)
	str(&t.PlusYears, o.PlusYears)
	if o.EntryMaxPlusYears > 0 {
		t.EntryMaxPlusYears = o.EntryMaxPlusYears
	}
}
