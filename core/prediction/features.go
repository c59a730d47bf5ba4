package prediction

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// SlotEnv is the environment a feature expression is evaluated against.
// Cumulative values cover every flight ready by the slot time, the current
// slot included.
type SlotEnv struct {
	Capacity                    float64
	Flights                     float64
	ShortDelayFlights           float64
	LongDelayFlights            float64
	CumulativeFlights           float64
	CumulativeCapacity          float64
	CumulativeShortDelayFlights float64
	CumulativeLongDelayFlights  float64
	// ConnectedFlights counts flights ready within the connection lookback
	// before the slot time, bounds included.
	ConnectedFlights float64
	MinuteOfDay      float64
	Hour             float64 // decimal, 10:45 is 10.75
	SlotIndex        float64
	IntervalMinutes  float64
}

func (e SlotEnv) vars() map[string]any {
	return map[string]any{
		"capacity":            e.Capacity,
		"flights":             e.Flights,
		"short_delay_flights": e.ShortDelayFlights,
		"long_delay_flights":  e.LongDelayFlights,
		"cumulative_flights":  e.CumulativeFlights,
		"cumulative_capacity": e.CumulativeCapacity,

		"cumulative_short_delay_flights": e.CumulativeShortDelayFlights,
		"cumulative_long_delay_flights":  e.CumulativeLongDelayFlights,

		"connected_flights": e.ConnectedFlights,
		"minute_of_day":     e.MinuteOfDay,
		"hour":              e.Hour,
		"slot_index":        e.SlotIndex,
		"interval_minutes":  e.IntervalMinutes,
	}
}

// FeatureDef names one feature and the expression computing it.
type FeatureDef struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// DefaultFeatures feeds the predictor the slot capacity only.
func DefaultFeatures() []FeatureDef {
	return []FeatureDef{{Name: "capacity", Expr: "capacity"}}
}

// Named feature contracts understood by deployed models.
var contracts = map[string][]FeatureDef{
	"capacity": DefaultFeatures(),
	"minute-connected": {
		{Name: "minutos_dia", Expr: "minute_of_day"},
		{Name: "vuelos_conectados", Expr: "connected_flights"},
	},
	"cumulative-region": {
		{Name: "hora", Expr: "hour"},
		{Name: "num_vuelos_previos", Expr: "cumulative_flights"},
		{Name: "suma_capacidades_previas", Expr: "cumulative_capacity"},
		{Name: "vuelos_origen_UE", Expr: "cumulative_short_delay_flights"},
		{Name: "vuelos_origen_no_UE", Expr: "cumulative_long_delay_flights"},
	},
}

// Contract returns a named built-in feature contract.
func Contract(name string) ([]FeatureDef, error) {
	defs, ok := contracts[name]
	if !ok {
		return nil, fmt.Errorf("unknown feature contract %q", name)
	}
	out := make([]FeatureDef, len(defs))
	copy(out, defs)
	return out, nil
}

// FeatureSet is a compiled feature contract. It is safe for concurrent use.
type FeatureSet struct {
	names    []string
	programs []*vm.Program
}

// NewFeatureSet compiles defs. Names must be unique and expressions must
// evaluate to a number over SlotEnv.
func NewFeatureSet(defs []FeatureDef) (*FeatureSet, error) {
	if len(defs) == 0 {
		defs = DefaultFeatures()
	}
	env := SlotEnv{}.vars()
	fs := &FeatureSet{names: make([]string, len(defs)), programs: make([]*vm.Program, len(defs))}
	seen := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate feature %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		src := d.Expr
		if src == "" {
			src = d.Name
		}
		prog, err := expr.Compile(src, expr.Env(env), expr.AsFloat64())
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", d.Name, err)
		}
		fs.names[i] = d.Name
		fs.programs[i] = prog
	}
	return fs, nil
}

// Names returns the feature names in contract order.
func (fs *FeatureSet) Names() []string {
	return append([]string(nil), fs.names...)
}

// Evaluate computes the feature vector for one slot.
func (fs *FeatureSet) Evaluate(e SlotEnv) (Features, error) {
	vars := e.vars()
	out := Features{Names: fs.Names(), Values: make([]float64, len(fs.programs))}
	for i, p := range fs.programs {
		v, err := expr.Run(p, vars)
		if err != nil {
			return Features{}, fmt.Errorf("feature %q: %w", fs.names[i], err)
		}
		f, ok := v.(float64)
		if !ok {
			return Features{}, fmt.Errorf("feature %q: got %T, want float64", fs.names[i], v)
		}
		out.Values[i] = f
	}
	return out, nil
}
