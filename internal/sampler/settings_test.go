package sampler

import (
	"testing"
)

func TestDefaultSettings_ScaleWithDimension(t *testing.T) {
	s := DefaultSettings(4, 2)
	if s.NLive != 100 || s.NumRepeats != 20 || s.UpdateFiles != 100 {
		t.Fatalf("dimension defaults: nlive=%d num_repeats=%d update_files=%d", s.NLive, s.NumRepeats, s.UpdateFiles)
	}
	if !s.DoClustering || !s.Posteriors || !s.Equals || !s.WriteResume || s.ReadResume || s.WriteParamnames {
		t.Fatalf("unexpected flag defaults: %+v", s)
	}
	if s.MaxNDead != -1 || s.PrecisionCriterion != 1e-3 || s.Feedback != 1 {
		t.Fatalf("unexpected numeric defaults: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestWithDimensionDefaults_KeepsExplicitValues(t *testing.T) {
	s := Settings{NDims: 3, NLive: 7, NumRepeats: 2, UpdateFiles: -1}.WithDimensionDefaults()
	if s.NLive != 7 || s.NumRepeats != 2 || s.UpdateFiles != -1 {
		t.Fatalf("explicit values overwritten: %+v", s)
	}
}

func TestWithDefaults_FillsAdapterFieldsOnly(t *testing.T) {
	names := []string{"a", "b"}
	s := Settings{NDims: 2, ParamNames: names}.WithDefaults()
	if s.BaseDir != "chains" || s.FileRoot != "test" || s.Workers != 1 {
		t.Fatalf("adapter defaults not applied: %+v", s)
	}
	if s.NLive != 0 || s.NumRepeats != 0 {
		t.Fatalf("engine parameters must not be defaulted: %+v", s)
	}
	s.ParamNames[0] = "changed"
	if names[0] != "a" {
		t.Fatalf("ParamNames aliased caller slice")
	}
}

func TestValidate_ReportsField(t *testing.T) {
	base := DefaultSettings(2, 0)
	cases := []struct {
		field string
		mut   func(*Settings)
	}{
		{"ndims", func(s *Settings) { s.NDims = 0 }},
		{"nderived", func(s *Settings) { s.NDerived = -1 }},
		{"nlive", func(s *Settings) { s.NLive = 0 }},
		{"num_repeats", func(s *Settings) { s.NumRepeats = -3 }},
		{"precision_criterion", func(s *Settings) { s.PrecisionCriterion = 0 }},
		{"feedback", func(s *Settings) { s.Feedback = 4 }},
		{"boost_posterior", func(s *Settings) { s.BoostPosterior = -1 }},
		{"workers", func(s *Settings) { s.Workers = 0 }},
		{"param_names", func(s *Settings) { s.ParamNames = []string{"only-one"} }},
		{"file_root", func(s *Settings) { s.FileRoot = "a/b" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			s := base
			tc.mut(&s)
			err := s.Validate()
			if !IsConfigError(err) {
				t.Fatalf("expected config error, got %v", err)
			}
			if got := ConfigErrorField(err); got != tc.field {
				t.Fatalf("field: got %q want %q", got, tc.field)
			}
		})
	}
}

func TestParams_DefaultAndCustomNames(t *testing.T) {
	s := DefaultSettings(2, 1)
	ps := s.Params()
	if len(ps) != 3 {
		t.Fatalf("len=%d", len(ps))
	}
	if ps[0].Name != "p1" || ps[1].Label != `\theta_{2}` || ps[2].Name != "d1" || !ps[2].Derived || ps[0].Derived {
		t.Fatalf("unexpected params: %+v", ps)
	}
	s.ParamNames = []string{"x", "y", "r"}
	ps = s.Params()
	if ps[0].Name != "x" || ps[2].Name != "r" || !ps[2].Derived {
		t.Fatalf("custom names not used: %+v", ps)
	}
}
