package xbrl

import "testing"

func buildOpts() BuildOptions {
	return BuildOptions{
		Entity:    "529900T8BM49AURSDO55",
		Scheme:    "http://standards.iso.org/iso/17442",
		Period:    Period{StartDate: "2025-01-01", EndDate: "2025-12-31"},
		Currency:  "EUR",
		SchemaRef: "report.xsd",
		Decimals:  "2",
	}
}

func TestBuildInstance(t *testing.T) {
	tmpl := DeriveTemplate(statementTaxonomy())
	values := map[string]string{
		"Revenue":     "820000.00",
		"TotalAssets": "1500000.00",
		"EntityName":  "Acme Holdings",
		"ReportDate":  "2025-12-31",
	}

	inst, err := BuildInstance(tmpl, values, buildOpts())
	if err != nil {
		t.Fatalf("BuildInstance() error = %v", err)
	}

	if inst.SchemaRef != "report.xsd" {
		t.Errorf("SchemaRef = %q", inst.SchemaRef)
	}
	if len(inst.Contexts) != 1 || inst.Contexts[0].ID != "c-1" {
		t.Fatalf("Contexts = %+v, want single c-1", inst.Contexts)
	}
	if len(inst.Units) != 1 || inst.Units[0].Measure != "iso4217:EUR" {
		t.Fatalf("Units = %+v, want single iso4217:EUR", inst.Units)
	}

	// Facts follow the template's required-concept order, not map order.
	wantOrder := []string{"TotalAssets", "Revenue", "EntityName", "ReportDate"}
	if len(inst.Facts) != len(wantOrder) {
		t.Fatalf("len(Facts) = %d, want %d", len(inst.Facts), len(wantOrder))
	}
	for i, name := range wantOrder {
		if inst.Facts[i].Name != name {
			t.Errorf("Facts[%d].Name = %q, want %q", i, inst.Facts[i].Name, name)
		}
	}

	// Monetary facts share the currency unit; others carry no unitRef.
	if inst.Facts[0].UnitRef != "u-1" || inst.Facts[0].Decimals != "2" {
		t.Errorf("TotalAssets fact = %+v, want unitRef u-1 decimals 2", inst.Facts[0])
	}
	if inst.Facts[2].UnitRef != "" {
		t.Errorf("EntityName fact = %+v, want no unitRef", inst.Facts[2])
	}

	if inst.Metadata.Entity != "529900T8BM49AURSDO55" || inst.Metadata.Currency != "EUR" {
		t.Errorf("Metadata = %+v", inst.Metadata)
	}
}

func TestBuildInstance_SkipsAbsentValues(t *testing.T) {
	tmpl := DeriveTemplate(statementTaxonomy())
	inst, err := BuildInstance(tmpl, map[string]string{"Revenue": "1"}, buildOpts())
	if err != nil {
		t.Fatalf("BuildInstance() error = %v", err)
	}
	if len(inst.Facts) != 1 || inst.Facts[0].Name != "Revenue" {
		t.Fatalf("Facts = %+v, want only Revenue", inst.Facts)
	}

	// The validator, not the builder, reports the gaps.
	report := Validate(inst, tmpl)
	if report.IsValid {
		t.Error("IsValid = true, want false for missing concepts")
	}
}

func TestBuildInstance_NoCurrency(t *testing.T) {
	opts := buildOpts()
	opts.Currency = ""
	tmpl := DeriveTemplate(statementTaxonomy())

	inst, err := BuildInstance(tmpl, map[string]string{"TotalAssets": "1"}, opts)
	if err != nil {
		t.Fatalf("BuildInstance() error = %v", err)
	}
	if len(inst.Units) != 0 {
		t.Errorf("Units = %+v, want none", inst.Units)
	}
	if inst.Facts[0].UnitRef != "" {
		t.Errorf("Facts[0].UnitRef = %q, want empty", inst.Facts[0].UnitRef)
	}
}

func TestBuildInstance_InvalidOptions(t *testing.T) {
	tmpl := DeriveTemplate(statementTaxonomy())

	opts := buildOpts()
	opts.Entity = ""
	if _, err := BuildInstance(tmpl, nil, opts); err == nil {
		t.Error("expected error for empty entity")
	}

	opts = buildOpts()
	opts.Period = Period{StartDate: "2025-01-01"} // no end date
	if _, err := BuildInstance(tmpl, nil, opts); err == nil {
		t.Error("expected error for half-open period")
	}

	opts = buildOpts()
	opts.Period = Period{Instant: "2025-12-31", EndDate: "2025-12-31"}
	if _, err := BuildInstance(tmpl, nil, opts); err == nil {
		t.Error("expected error for mixed period shape")
	}
}

// A built instance survives generation and validates cleanly.
func TestBuildInstance_GeneratesValidDocument(t *testing.T) {
	tmpl := DeriveTemplate(statementTaxonomy())
	values := map[string]string{
		"TotalAssets": "1500000.00",
		"Revenue":     "820000.00",
		"EntityName":  "Acme Holdings",
		"ReportDate":  "2025-12-31",
	}
	inst, err := BuildInstance(tmpl, values, buildOpts())
	if err != nil {
		t.Fatalf("BuildInstance() error = %v", err)
	}

	data, err := NewGenerator().Generate(inst)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	parsed, err := NewParser().ParseInstance(data)
	if err != nil {
		t.Fatalf("ParseInstance() error = %v", err)
	}

	report := Validate(parsed, tmpl)
	if !report.IsValid {
		t.Errorf("IsValid = false, errors = %v", report.Errors)
	}
}
