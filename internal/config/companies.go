package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// companyRecord accepts every alias the registry file has used over time.
// yaml.v3 also parses the JSON form of the file.
type companyRecord struct {
	Provider    string `yaml:"provider"`
	Source      string `yaml:"source"`
	ATS         string `yaml:"ats"`
	Company     string `yaml:"company"`
	Name        string `yaml:"name"`
	Org         string `yaml:"org"`
	Token       string `yaml:"token"`
	BoardToken  string `yaml:"board_token"`
	Host        string `yaml:"host"`
	Domain      string `yaml:"domain"`
	Path        string `yaml:"path"`
	Environment string `yaml:"environment"`
	Priority    string `yaml:"priority"`
}

func first(xs ...string) string {
	for _, x := range xs {
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	}
	return ""
}

func (r companyRecord) entry() domain.CompanyEntry {
	e := domain.CompanyEntry{
		Provider: domain.Source(strings.ToLower(first(r.Provider, r.Source, r.ATS))),
		Company:  first(r.Company, r.Name, r.Org),
		Token:    first(r.Token, r.BoardToken),
		Host:     first(r.Host, r.Domain),
		Path:     first(r.Path, r.Environment, "External"),
		Priority: strings.ToLower(first(r.Priority, "normal")),
	}
	if e.Company == "" {
		e.Company = first(e.Token, e.Host)
	}
	return e
}

// missingField names the identifier a provider cannot work without, or "".
func missingField(e domain.CompanyEntry) string {
	switch e.Provider {
	case domain.SourceWorkday, domain.SourceCrawler:
		if e.Host == "" {
			return "host"
		}
	default:
		if e.Token == "" {
			return "token"
		}
	}
	return ""
}

// ParseCompanies decodes a registry document holding a list of entries or a
// single entry. Entries with an unknown provider or a missing identifier are
// reported as warnings and skipped.
func ParseCompanies(b []byte) ([]domain.CompanyEntry, Validation, error) {
	var res Validation

	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, res, fmt.Errorf("companies parse: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, res, nil
	}
	root := node.Content[0]

	var recs []companyRecord
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&recs); err != nil {
			return nil, res, fmt.Errorf("companies decode: %w", err)
		}
	case yaml.MappingNode:
		var one companyRecord
		if err := root.Decode(&one); err != nil {
			return nil, res, fmt.Errorf("companies decode: %w", err)
		}
		recs = []companyRecord{one}
	default:
		res.addWarn("companies file is neither a list nor an object; ignored")
		return nil, res, nil
	}

	out := make([]domain.CompanyEntry, 0, len(recs))
	for i, r := range recs {
		e := r.entry()
		src, ok := domain.ParseSource(string(e.Provider))
		if !ok {
			res.addWarn("companies[%d] (%s): unknown provider %q, skipped", i, e.Company, e.Provider)
			continue
		}
		e.Provider = src
		if f := missingField(e); f != "" {
			res.addWarn("companies[%d] (%s): %s provider requires %s, skipped", i, e.Company, src, f)
			continue
		}
		out = append(out, e)
	}
	return out, res, nil
}

// LoadCompanies reads the registry file. A missing file is not fatal.
func LoadCompanies(path string) ([]domain.CompanyEntry, Validation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var res Validation
			res.addWarn("companies file %q not found; no ATS providers will run", path)
			return nil, res, nil
		}
		return nil, Validation{}, fmt.Errorf("companies read %s: %w", path, err)
	}
	return ParseCompanies(b)
}
