// Package templatefile reads a service template catalog from YAML.
//
// Example:
//
//	templates:
//	  - name: Healthcare BIM
//	    version: 2
//	    sector: health
//	    items:
//	      - phase: Design
//	        service_code: DR
//	        service_name: Design reviews
//	        unit_type: review
//	        unit_qty: 12
//	        unit_rate: "1250.00"
//	        frequency: fortnightly
package templatefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/YusovID/bim-delivery-service/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Name    string      `yaml:"name"`
	Version int         `yaml:"version"`
	Sector  string      `yaml:"sector"`
	Notes   string      `yaml:"notes"`
	Items   []itemEntry `yaml:"items"`
}

type itemEntry struct {
	Phase        string   `yaml:"phase"`
	ServiceCode  string   `yaml:"service_code"`
	ServiceName  string   `yaml:"service_name"`
	UnitType     string   `yaml:"unit_type"`
	UnitQty      *float64 `yaml:"unit_qty"`
	UnitRate     string   `yaml:"unit_rate"`
	LumpSumFee   string   `yaml:"lump_sum_fee"`
	BillRule     string   `yaml:"bill_rule"`
	Frequency    string   `yaml:"frequency"`
	Disciplines  string   `yaml:"disciplines"`
	Deliverables string   `yaml:"deliverables"`
	Notes        string   `yaml:"notes"`
}

// Load reads and parses the catalog file at path.
func Load(path string) ([]domain.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read template catalog: %w", err)
	}

	templates, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return templates, nil
}

// Parse decodes a catalog document. Unknown keys are rejected so typos do not
// silently drop pricing fields. Business rules are checked on import.
func Parse(data []byte) ([]domain.Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("template catalog is empty")
		}

		return nil, fmt.Errorf("invalid template catalog yaml: %w", err)
	}

	templates := make([]domain.Template, 0, len(file.Templates))

	for i, entry := range file.Templates {
		tpl, err := entry.toDomain()
		if err != nil {
			return nil, fmt.Errorf("templates[%d] %q: %w", i, entry.Name, err)
		}

		templates = append(templates, tpl)
	}

	return templates, nil
}

func (e templateEntry) toDomain() (domain.Template, error) {
	tpl := domain.Template{
		Name:    strings.TrimSpace(e.Name),
		Version: e.Version,
		Sector:  e.Sector,
		Notes:   e.Notes,
		Items:   make([]domain.TemplateItem, 0, len(e.Items)),
	}

	if tpl.Version == 0 {
		tpl.Version = 1
	}

	for i, it := range e.Items {
		item, err := it.toDomain(i + 1)
		if err != nil {
			return domain.Template{}, fmt.Errorf("items[%d] %q: %w", i, it.ServiceCode, err)
		}

		tpl.Items = append(tpl.Items, item)
	}

	return tpl, nil
}

func (e itemEntry) toDomain(position int) (domain.TemplateItem, error) {
	item := domain.TemplateItem{
		Position:     position,
		Phase:        e.Phase,
		ServiceCode:  strings.TrimSpace(e.ServiceCode),
		ServiceName:  e.ServiceName,
		UnitType:     domain.UnitType(strings.ToLower(strings.TrimSpace(e.UnitType))),
		UnitQty:      e.UnitQty,
		BillRule:     domain.BillRule(strings.ToLower(strings.TrimSpace(e.BillRule))),
		Disciplines:  e.Disciplines,
		Deliverables: e.Deliverables,
		Notes:        e.Notes,
	}

	if !item.UnitType.Valid() {
		return item, fmt.Errorf("unknown unit_type %q", e.UnitType)
	}

	if item.BillRule != "" && !item.BillRule.Valid() {
		return item, fmt.Errorf("unknown bill_rule %q", e.BillRule)
	}

	var err error

	if item.UnitRate, err = parseMoney(e.UnitRate); err != nil {
		return item, fmt.Errorf("unit_rate: %w", err)
	}

	if item.LumpSumFee, err = parseMoney(e.LumpSumFee); err != nil {
		return item, fmt.Errorf("lump_sum_fee: %w", err)
	}

	if strings.TrimSpace(e.Frequency) != "" {
		if item.ScheduleFrequency, err = domain.ParseFrequency(e.Frequency); err != nil {
			return item, err
		}
	}

	return item, nil
}

func parseMoney(s string) (decimal.NullDecimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", s)
	}

	return decimal.NewNullDecimal(d), nil
}
