package communication

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"reversi/telemetry"
)

// Telemetry travels as a form-encoded POST. Every request carries a logtype
// and, except for newlog, the generation it refers to. Lists are tuples of
// comma-separated integers joined by ";"; -1 marks an absent parent.
const (
	FieldLogType    = "logtype"
	FieldGeneration = "generation"

	LogTypeNew     = "newlog"
	LogTypeBorn    = "born"
	LogTypeKilled  = "killed"
	LogTypeFitness = "fitness"
)

func NewLogForm() url.Values {
	return url.Values{FieldLogType: {LogTypeNew}}
}

func BirthForm(generation int, born []telemetry.Birth) url.Values {
	tuples := make([]string, len(born))
	for i, b := range born {
		tuples[i] = joinInts(b.Identifier, refGen(b.ParentA), refID(b.ParentA), refGen(b.ParentB), refID(b.ParentB))
	}
	return form(LogTypeBorn, generation, tuples)
}

func DeathForm(generation int, dead []telemetry.GenomeRef) url.Values {
	tuples := make([]string, len(dead))
	for i, d := range dead {
		tuples[i] = joinInts(d.Generation, d.Identifier)
	}
	return form(LogTypeKilled, generation, tuples)
}

func FitnessForm(generation int, fitness []telemetry.Fitness) url.Values {
	tuples := make([]string, len(fitness))
	for i, f := range fitness {
		tuples[i] = joinInts(f.Individual.Generation, f.Individual.Identifier) + "," +
			strconv.FormatFloat(f.RawFitness, 'g', -1, 64)
	}
	return form(LogTypeFitness, generation, tuples)
}

func form(logType string, generation int, tuples []string) url.Values {
	return url.Values{
		FieldLogType:    {logType},
		FieldGeneration: {strconv.Itoa(generation)},
		logType:         {strings.Join(tuples, ";")},
	}
}

func joinInts(values ...int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func refGen(ref *telemetry.GenomeRef) int {
	if ref == nil {
		return -1
	}
	return ref.Generation
}

func refID(ref *telemetry.GenomeRef) int {
	if ref == nil {
		return -1
	}
	return ref.Identifier
}

// Generation reads the generation field of a form.
func Generation(form url.Values) (int, error) {
	generation, err := strconv.Atoi(form.Get(FieldGeneration))
	if err != nil {
		return 0, fmt.Errorf("invalid generation %q: %w", form.Get(FieldGeneration), err)
	}
	return generation, nil
}

func ParseBirths(list string) ([]telemetry.Birth, error) {
	tuples, err := splitTuples(list, 5)
	if err != nil {
		return nil, err
	}
	born := make([]telemetry.Birth, len(tuples))
	for i, t := range tuples {
		born[i] = telemetry.Birth{Identifier: t[0], ParentA: ref(t[1], t[2]), ParentB: ref(t[3], t[4])}
	}
	return born, nil
}

func ParseDeaths(list string) ([]telemetry.GenomeRef, error) {
	tuples, err := splitTuples(list, 2)
	if err != nil {
		return nil, err
	}
	dead := make([]telemetry.GenomeRef, len(tuples))
	for i, t := range tuples {
		dead[i] = telemetry.GenomeRef{Generation: t[0], Identifier: t[1]}
	}
	return dead, nil
}

func ParseFitness(list string) ([]telemetry.Fitness, error) {
	var fitness []telemetry.Fitness
	for _, tuple := range nonEmpty(strings.Split(list, ";")) {
		parts := strings.Split(tuple, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("fitness tuple %q: want 3 fields, got %d", tuple, len(parts))
		}
		ids, err := atois(parts[:2])
		if err != nil {
			return nil, fmt.Errorf("fitness tuple %q: %w", tuple, err)
		}
		value, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("fitness tuple %q: %w", tuple, err)
		}
		fitness = append(fitness, telemetry.Fitness{
			Individual: telemetry.GenomeRef{Generation: ids[0], Identifier: ids[1]},
			RawFitness: value,
		})
	}
	return fitness, nil
}

func ref(generation, identifier int) *telemetry.GenomeRef {
	if generation < 0 || identifier < 0 {
		return nil
	}
	return &telemetry.GenomeRef{Generation: generation, Identifier: identifier}
}

func splitTuples(list string, fields int) ([][]int, error) {
	var tuples [][]int
	for _, tuple := range nonEmpty(strings.Split(list, ";")) {
		parts := strings.Split(tuple, ",")
		if len(parts) != fields {
			return nil, fmt.Errorf("tuple %q: want %d fields, got %d", tuple, fields, len(parts))
		}
		values, err := atois(parts)
		if err != nil {
			return nil, fmt.Errorf("tuple %q: %w", tuple, err)
		}
		tuples = append(tuples, values)
	}
	return tuples, nil
}

func atois(parts []string) ([]int, error) {
	values := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
