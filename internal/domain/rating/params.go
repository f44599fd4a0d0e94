package rating

import (
	"fmt"
	"math"
)

// Default model constants.
const (
	defaultK             = 0.25
	defaultEloScale      = 1.25
	defaultMarginMin     = 0.25
	defaultMarginGamma   = 1.3
	defaultUpsetBeta     = 0.8
	defaultUpsetGamma    = 1.2
	defaultPMRMin        = 0.1
	defaultPMRMax        = 8.9
	defaultVMax          = 3.0
	defaultVGamma        = 1.2
	defaultRelTau        = 77
	defaultRelCurveGamma = 0.52
	defaultRelMin        = 0
	defaultRelMax        = 100

	// reliabilityCeiling is the saturation point of the reliability curve.
	reliabilityCeiling = 100
)

// Params is the immutable configuration of the rating model. Build it with
// DefaultParams or NewParams; a Params value is never modified after it is
// handed to an Engine.
type Params struct {
	K           float64 // base learning rate
	EloScale    float64 // logistic steepness of the expected outcome
	MarginMin   float64 // floor of the margin factor
	MarginGamma float64 // curvature of the margin factor
	UpsetBeta   float64 // strength of the upset factor
	UpsetGamma  float64 // curvature of the upset factor

	PMRMin float64
	PMRMax float64

	VMax   float64 // volatility multiplier at zero reliability
	VGamma float64 // decay curvature of the volatility multiplier

	RelTau        float64 // confidence-growth time constant, in matches
	RelCurveGamma float64 // confidence-growth curvature

	RelMin float64
	RelMax float64
}

// Overrides is a partial Params. Nil fields keep the value of the base they
// are merged onto.
type Overrides struct {
	K           *float64 `json:"k,omitempty" koanf:"k" yaml:"k"`
	EloScale    *float64 `json:"elo_scale,omitempty" koanf:"elo_scale" yaml:"elo_scale"`
	MarginMin   *float64 `json:"margin_min,omitempty" koanf:"margin_min" yaml:"margin_min"`
	MarginGamma *float64 `json:"margin_gamma,omitempty" koanf:"margin_gamma" yaml:"margin_gamma"`
	UpsetBeta   *float64 `json:"upset_beta,omitempty" koanf:"upset_beta" yaml:"upset_beta"`
	UpsetGamma  *float64 `json:"upset_gamma,omitempty" koanf:"upset_gamma" yaml:"upset_gamma"`

	PMRMin *float64 `json:"pmr_min,omitempty" koanf:"pmr_min" yaml:"pmr_min"`
	PMRMax *float64 `json:"pmr_max,omitempty" koanf:"pmr_max" yaml:"pmr_max"`

	VMax   *float64 `json:"v_max,omitempty" koanf:"v_max" yaml:"v_max"`
	VGamma *float64 `json:"v_gamma,omitempty" koanf:"v_gamma" yaml:"v_gamma"`

	RelTau        *float64 `json:"rel_tau,omitempty" koanf:"rel_tau" yaml:"rel_tau"`
	RelCurveGamma *float64 `json:"rel_curve_gamma,omitempty" koanf:"rel_curve_gamma" yaml:"rel_curve_gamma"`

	RelMin *float64 `json:"rel_min,omitempty" koanf:"rel_min" yaml:"rel_min"`
	RelMax *float64 `json:"rel_max,omitempty" koanf:"rel_max" yaml:"rel_max"`
}

// DefaultParams returns the documented default model.
func DefaultParams() Params {
	return Params{
		K:             defaultK,
		EloScale:      defaultEloScale,
		MarginMin:     defaultMarginMin,
		MarginGamma:   defaultMarginGamma,
		UpsetBeta:     defaultUpsetBeta,
		UpsetGamma:    defaultUpsetGamma,
		PMRMin:        defaultPMRMin,
		PMRMax:        defaultPMRMax,
		VMax:          defaultVMax,
		VGamma:        defaultVGamma,
		RelTau:        defaultRelTau,
		RelCurveGamma: defaultRelCurveGamma,
		RelMin:        defaultRelMin,
		RelMax:        defaultRelMax,
	}
}

// NewParams merges o onto the defaults.
func NewParams(o Overrides) Params {
	return DefaultParams().With(o)
}

// With returns a copy of p with every non-nil field of o applied.
func (p Params) With(o Overrides) Params {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.K, o.K)
	set(&p.EloScale, o.EloScale)
	set(&p.MarginMin, o.MarginMin)
	set(&p.MarginGamma, o.MarginGamma)
	set(&p.UpsetBeta, o.UpsetBeta)
	set(&p.UpsetGamma, o.UpsetGamma)
	set(&p.PMRMin, o.PMRMin)
	set(&p.PMRMax, o.PMRMax)
	set(&p.VMax, o.VMax)
	set(&p.VGamma, o.VGamma)
	set(&p.RelTau, o.RelTau)
	set(&p.RelCurveGamma, o.RelCurveGamma)
	set(&p.RelMin, o.RelMin)
	set(&p.RelMax, o.RelMax)
	return p
}

// IsZero reports whether o overrides nothing.
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// Validate reports the first parameter that would make the model ill-defined.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"k", p.K}, {"elo_scale", p.EloScale},
		{"margin_min", p.MarginMin}, {"margin_gamma", p.MarginGamma},
		{"upset_beta", p.UpsetBeta}, {"upset_gamma", p.UpsetGamma},
		{"pmr_min", p.PMRMin}, {"pmr_max", p.PMRMax},
		{"v_max", p.VMax}, {"v_gamma", p.VGamma},
		{"rel_tau", p.RelTau}, {"rel_curve_gamma", p.RelCurveGamma},
		{"rel_min", p.RelMin}, {"rel_max", p.RelMax},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParams, f.name)
		}
	}

	switch {
	case p.K < 0:
		return fmt.Errorf("%w: k must not be negative", ErrInvalidParams)
	case p.EloScale <= 0:
		return fmt.Errorf("%w: elo_scale must be positive", ErrInvalidParams)
	case p.MarginMin < 0 || p.MarginMin > 1:
		return fmt.Errorf("%w: margin_min must be within [0, 1]", ErrInvalidParams)
	case p.MarginGamma <= 0:
		return fmt.Errorf("%w: margin_gamma must be positive", ErrInvalidParams)
	case p.UpsetBeta < 0:
		return fmt.Errorf("%w: upset_beta must not be negative", ErrInvalidParams)
	case p.UpsetGamma <= 0:
		return fmt.Errorf("%w: upset_gamma must be positive", ErrInvalidParams)
	case p.PMRMin >= p.PMRMax:
		return fmt.Errorf("%w: pmr_min must be below pmr_max", ErrInvalidParams)
	case p.VMax < 1:
		return fmt.Errorf("%w: v_max must be at least 1", ErrInvalidParams)
	case p.VGamma <= 0:
		return fmt.Errorf("%w: v_gamma must be positive", ErrInvalidParams)
	case p.RelTau <= 0:
		return fmt.Errorf("%w: rel_tau must be positive", ErrInvalidParams)
	case p.RelCurveGamma <= 0:
		return fmt.Errorf("%w: rel_curve_gamma must be positive", ErrInvalidParams)
	case p.RelMin < 0 || p.RelMax > reliabilityCeiling || p.RelMin >= p.RelMax:
		return fmt.Errorf("%w: reliability bounds must satisfy 0 <= rel_min < rel_max <= 100", ErrInvalidParams)
	}
	return nil
}

// Float returns a pointer to v, for building Overrides literals.
func Float(v float64) *float64 { return &v }
