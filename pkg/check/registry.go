package check

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Factory builds a Func from loosely-typed parameters as they appear in a
// suite file.
type Factory func(params map[string]any) (Func, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a named check factory. Registering a name twice panics;
// names share one flat namespace resolved at suite load.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("check: Register called twice for %q", name))
	}
	factories[name] = f
}

// Build constructs the named check with the given parameters.
func Build(name string, params map[string]any) (Func, error) {
	regMu.RLock()
	f, ok := factories[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown check %q (known: %v)", ErrInvalidParameters, name, Names())
	}
	fn, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("check %q: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered check names, sorted.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// decode maps loosely-typed params onto a tagged struct, rejecting keys the
// check does not understand so suite-file typos fail loudly.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return nil
}

func init() {
	Register("column_format", func(params map[string]any) (Func, error) {
		var p struct {
			Column  string `mapstructure:"column"`
			Pattern string `mapstructure:"pattern"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return ColumnFormat(p.Column, p.Pattern)
	})

	Register("missing_values", func(params map[string]any) (Func, error) {
		var p struct {
			Columns []string `mapstructure:"columns"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return MissingValues(p.Columns...), nil
	})

	Register("value_range", func(params map[string]any) (Func, error) {
		var p struct {
			Column string   `mapstructure:"column"`
			Min    *float64 `mapstructure:"min"`
			Max    *float64 `mapstructure:"max"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return ValueRange(p.Column, p.Min, p.Max)
	})

	Register("no_duplicates", func(params map[string]any) (Func, error) {
		var p struct {
			Columns []string `mapstructure:"columns"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return NoDuplicates(p.Columns...), nil
	})

	Register("identical_within_group", func(params map[string]any) (Func, error) {
		var p struct {
			By     string `mapstructure:"by"`
			Column string `mapstructure:"column"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return IdenticalWithinGroup(p.By, p.Column)
	})

	Register("group_aggregate", func(params map[string]any) (Func, error) {
		var p struct {
			By        string  `mapstructure:"by"`
			Column    string  `mapstructure:"column"`
			Aggregate string  `mapstructure:"aggregate"`
			Want      float64 `mapstructure:"want"`
			Tolerance float64 `mapstructure:"tolerance"`
		}
		if err := decode(params, &p); err != nil {
			return nil, err
		}
		return GroupAggregate(p.By, p.Column, p.Aggregate, p.Want, p.Tolerance)
	})
}
