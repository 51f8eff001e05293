package experiments

import (
	"sort"
	"strconv"
	"strings"

	"reversi/evolution"
	"reversi/meta"

	"github.com/pkg/errors"
)

// EvolutionConfig holds the population hyper-parameters of a run.
type EvolutionConfig struct {
	PopulationSize          int
	Survivors               int
	ReproductionProbability float64
	MutationProbability     float64
}

func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		PopulationSize:          meta.POPULATION_SIZE,
		Survivors:               meta.SURVIVORS,
		ReproductionProbability: meta.REPRODUCTION_PROBABILITY,
		MutationProbability:     meta.MUTATION_PROBABILITY,
	}
}

func (c EvolutionConfig) Options() []evolution.Option {
	return []evolution.Option{
		evolution.WithPopulationSize(c.PopulationSize),
		evolution.WithSurvivors(c.Survivors),
		evolution.WithReproductionProbability(c.ReproductionProbability),
		evolution.WithMutationProbability(c.MutationProbability),
	}
}

// ParseEvolutionConfig reads a comma-separated list of key=value pairs, e.g.
// "pop=10,survivors=5,mutation=0.001,reproduction=0.5". Missing keys keep
// their defaults; unknown keys are an error.
func ParseEvolutionConfig(config string) (EvolutionConfig, error) {
	c := DefaultEvolutionConfig()
	params := splitConfigString(config)

	var err error
	if c.PopulationSize, err = popParamOr(params, "pop", c.PopulationSize); err != nil {
		return c, err
	}
	if c.Survivors, err = popParamOr(params, "survivors", c.Survivors); err != nil {
		return c, err
	}
	if c.MutationProbability, err = popParamOr(params, "mutation", c.MutationProbability); err != nil {
		return c, err
	}
	if c.ReproductionProbability, err = popParamOr(params, "reproduction", c.ReproductionProbability); err != nil {
		return c, err
	}
	if len(params) > 0 {
		unknown := make([]string, 0, len(params))
		for key := range params {
			unknown = append(unknown, key)
		}
		sort.Strings(unknown)
		return c, errors.Errorf("unknown evolution parameters %q", unknown)
	}

	if c.Survivors < 2 || c.Survivors >= c.PopulationSize {
		return c, errors.Errorf("survivors=%d must be at least 2 and below pop=%d", c.Survivors, c.PopulationSize)
	}
	if c.ReproductionProbability <= 0 || c.ReproductionProbability > 1 {
		return c, errors.Errorf("reproduction=%v must be in (0, 1]", c.ReproductionProbability)
	}
	if c.MutationProbability <= 0 || c.MutationProbability > 1 {
		return c, errors.Errorf("mutation=%v must be in (0, 1]", c.MutationProbability)
	}
	return c, nil
}

// splitConfigString maps keys to their raw values. A key without "=" maps
// to "".
func splitConfigString(config string) map[string]string {
	params := make(map[string]string)
	if strings.TrimSpace(config) == "" {
		return params
	}
	for _, part := range strings.Split(config, ",") {
		subParts := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(subParts) == 1 {
			params[subParts[0]] = ""
		} else {
			params[subParts[0]] = subParts[1]
		}
	}
	return params
}

// popParamOr parses and removes key from params, or returns defaultValue if
// it is absent.
func popParamOr[T interface{ int | float64 }](params map[string]string, key string, defaultValue T) (T, error) {
	value, exists := params[key]
	if !exists {
		return defaultValue, nil
	}
	delete(params, key)
	if value == "" {
		return defaultValue, errors.Errorf("evolution parameter %q needs a value", key)
	}

	switch any(defaultValue).(type) {
	case int:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, value)
		}
		return any(parsed).(T), nil
	default:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return any(parsed).(T), nil
	}
}
