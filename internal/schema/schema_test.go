package schema

import (
	"errors"
	"strings"
	"testing"
)

func scenarioInput() map[string]string {
	return map[string]string{
		"TypeofContact":            "Self Inquiry",
		"CityTier":                 "3",
		"Occupation":               "salaried",
		"Gender":                   "female",
		"MaritalStatus":            "single",
		"Designation":              "executive",
		"ProductPitched":           "basic",
		"Age":                      "30",
		"NumberOfPersonVisiting":   "2",
		"PreferredPropertyStar":    "4",
		"NumberOfTrips":            "2",
		"NumberOfChildrenVisiting": "0",
		"MonthlyIncome":            "50000.0",
		"PitchSatisfactionScore":   "7",
		"NumberOfFollowups":        "2",
		"DurationOfPitch":          "15",
		"Passport":                 "Yes",
		"OwnCar":                   "Yes",
	}
}

func TestEmbeddedDefinition(t *testing.T) {
	s := MustLoad()
	want := []string{
		"TypeofContact", "CityTier", "Occupation", "Gender", "MaritalStatus", "Designation",
		"ProductPitched", "Age", "NumberOfPersonVisiting", "PreferredPropertyStar", "NumberOfTrips",
		"NumberOfChildrenVisiting", "MonthlyIncome", "PitchSatisfactionScore", "NumberOfFollowups",
		"DurationOfPitch", "Passport", "OwnCar",
	}
	got := s.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected field order:\n got %v\nwant %v", got, want)
	}
	cols := s.Columns()
	if cols[len(cols)-1] != "ProdTaken" {
		t.Fatalf("expected target last, got %v", cols)
	}
	if s.Version == "" {
		t.Fatal("expected a schema version")
	}
}

func TestDefaultsMatchForm(t *testing.T) {
	d := MustLoad().Defaults()
	checks := map[string]string{
		"Age": "30", "NumberOfPersonVisiting": "2", "PreferredPropertyStar": "4",
		"NumberOfTrips": "2", "NumberOfChildrenVisiting": "0", "MonthlyIncome": "50000.0",
		"PitchSatisfactionScore": "7", "NumberOfFollowups": "2", "DurationOfPitch": "15",
		"TypeofContact": "Company Invited", "CityTier": "1", "Passport": "Yes",
	}
	for k, v := range checks {
		if d[k] != v {
			t.Fatalf("default %s: expected %q, got %q", k, v, d[k])
		}
	}
	if _, err := MustLoad().NewRecord(d); err != nil {
		t.Fatalf("defaults must form a valid record: %v", err)
	}
}

func TestNewRecordScenario(t *testing.T) {
	rec, err := MustLoad().NewRecord(scenarioInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Get("Passport") != "1" || rec.Get("OwnCar") != "1" {
		t.Fatalf("expected yes to encode as 1, got %s/%s", rec.Get("Passport"), rec.Get("OwnCar"))
	}
	if rec.Get("MonthlyIncome") != "50000" {
		t.Fatalf("unexpected income text: %s", rec.Get("MonthlyIncome"))
	}
	income, err := rec.Float("MonthlyIncome")
	if err != nil || income != 50000 {
		t.Fatalf("unexpected income: %v %v", income, err)
	}
	if len(rec.Values()) != 18 {
		t.Fatalf("expected 18 values, got %d", len(rec.Values()))
	}
}

func TestCategoricalCaseFolding(t *testing.T) {
	in := scenarioInput()
	in["TypeofContact"] = "self inquiry"
	in["Designation"] = "Senior Manager"
	rec, err := MustLoad().NewRecord(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Get("TypeofContact") != "Self Inquiry" || rec.Get("Designation") != "senior manager" {
		t.Fatalf("expected canonical spelling, got %q / %q", rec.Get("TypeofContact"), rec.Get("Designation"))
	}
}

func TestYesNoEncodingIndependentOfOtherFields(t *testing.T) {
	s := MustLoad()
	for _, occupation := range []string{"salaried", "student", "other"} {
		for _, answer := range []struct {
			in   string
			want string
		}{{"Yes", "1"}, {"No", "0"}, {"yes", "1"}, {"NO", "0"}} {
			in := scenarioInput()
			in["Occupation"] = occupation
			in["Passport"] = answer.in
			in["OwnCar"] = answer.in
			rec, err := s.NewRecord(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Get("Passport") != answer.want || rec.Get("OwnCar") != answer.want {
				t.Fatalf("%s with %s: expected %s, got %s/%s", answer.in, occupation, answer.want, rec.Get("Passport"), rec.Get("OwnCar"))
			}
		}
	}

	if _, err := EncodeYesNo("maybe"); err == nil {
		t.Fatal("expected error for maybe")
	}
}

func TestDomainExtremesAccepted(t *testing.T) {
	in := scenarioInput()
	in["Age"] = "18"
	in["NumberOfTrips"] = "0"
	in["NumberOfPersonVisiting"] = "1"
	in["PreferredPropertyStar"] = "7"
	in["PitchSatisfactionScore"] = "0"
	in["MonthlyIncome"] = "0"
	in["DurationOfPitch"] = "0"
	in["Passport"] = "No"
	in["OwnCar"] = "No"
	if _, err := MustLoad().NewRecord(in); err != nil {
		t.Fatalf("expected extremes to be valid: %v", err)
	}
}

func TestNewRecordReportsEveryProblem(t *testing.T) {
	in := scenarioInput()
	in["Age"] = "101"
	in["CityTier"] = "4"
	in["Gender"] = "unknown"
	in["NumberOfTrips"] = "2.5"
	delete(in, "OwnCar")

	_, err := MustLoad().NewRecord(in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	reasons := verr.Reasons()
	for _, f := range []string{"Age", "CityTier", "Gender", "NumberOfTrips", "OwnCar"} {
		if _, ok := reasons[f]; !ok {
			t.Fatalf("expected a problem for %s, got %v", f, reasons)
		}
	}
	if reasons["Age"] != "must be at most 100" {
		t.Fatalf("unexpected age reason: %s", reasons["Age"])
	}
	if reasons["OwnCar"] != "is required" {
		t.Fatalf("unexpected OwnCar reason: %s", reasons["OwnCar"])
	}
	// problems follow schema order
	if verr.Problems[0].Field != "CityTier" {
		t.Fatalf("expected CityTier first, got %s", verr.Problems[0].Field)
	}
}

func TestIntegralDecimalAccepted(t *testing.T) {
	in := scenarioInput()
	in["CityTier"] = "3.0"
	in["Age"] = "45.0"
	rec, err := MustLoad().NewRecord(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Get("CityTier") != "3" || rec.Get("Age") != "45" {
		t.Fatalf("unexpected canonical values %s %s", rec.Get("CityTier"), rec.Get("Age"))
	}
}

func TestParseRejectsBadDefinitions(t *testing.T) {
	cases := map[string]string{
		"no version":   "target: y\nfields:\n  - {name: a, kind: integer}\n",
		"duplicate":    "version: '1'\ntarget: y\nfields:\n  - {name: a, kind: integer}\n  - {name: a, kind: float}\n",
		"unknown kind": "version: '1'\ntarget: y\nfields:\n  - {name: a, kind: text}\n",
		"no values":    "version: '1'\ntarget: y\nfields:\n  - {name: a, kind: categorical}\n",
		"target field": "version: '1'\ntarget: a\nfields:\n  - {name: a, kind: integer}\n",
		"min over max": "version: '1'\ntarget: y\nfields:\n  - {name: a, kind: integer, min: 5, max: 1}\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
