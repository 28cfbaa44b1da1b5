package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownKey is returned when a key is not in the parameter table.
var ErrUnknownKey = errors.New("unknown parameter")

// ErrInvalidValue is returned when a value cannot be converted to the kind of
// its parameter.
var ErrInvalidValue = errors.New("invalid parameter value")

// A Config is a full set of simulator parameters. Values are always stored
// with the Go type of their kind: int, float64, string or bool.
type Config struct {
	values map[string]any
}

// New creates a Config holding the defaults. The number of directories
// follows the number of CPUs.
func New() *Config {
	c := &Config{values: make(map[string]any, len(params))}
	for _, p := range params {
		c.values[p.Key] = p.Default
	}

	c.values["num_dirs"] = c.values["num_cpus"]

	return c
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	n := &Config{values: make(map[string]any, len(c.values))}
	for k, v := range c.values {
		n.values[k] = v
	}

	return n
}

// Get returns the value of a key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetInt returns an integer value, or 0 if the key is not an int.
func (c *Config) GetInt(key string) int {
	v, _ := c.values[key].(int)
	return v
}

// GetFloat returns a float value, or 0 if the key is not a float.
func (c *Config) GetFloat(key string) float64 {
	v, _ := c.values[key].(float64)
	return v
}

// GetString returns a string value, or "" if the key is not a string.
func (c *Config) GetString(key string) string {
	v, _ := c.values[key].(string)
	return v
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	v, _ := c.values[key].(bool)
	return v
}

// Set assigns a value after converting it to the kind of the parameter. Values
// below the minimum of the parameter, or outside its options, are refused.
func (c *Config) Set(key string, value any) error {
	p, ok := Lookup(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	v, err := coerce(p.Kind, value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	if err := p.check(v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	c.values[key] = v

	return nil
}

// SetString assigns a value given in text form, as typed by a user.
func (c *Config) SetString(key, text string) error {
	return c.Set(key, strings.TrimSpace(text))
}

// SetAll assigns several values. It stops at the first error.
func (c *Config) SetAll(values map[string]any) error {
	for _, p := range params {
		v, ok := values[p.Key]
		if !ok {
			continue
		}

		if err := c.Set(p.Key, v); err != nil {
			return err
		}
	}

	for k := range values {
		if _, ok := paramIndex[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}

	return nil
}

// Map returns a copy of the values.
func (c *Config) Map() map[string]any {
	m := make(map[string]any, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}

	return m
}

// IsDefault tells if a key holds its default value.
func (c *Config) IsDefault(key string) bool {
	p, ok := Lookup(key)
	if !ok {
		return false
	}

	return c.values[key] == p.Default
}

// IsGarnet tells if the Garnet network model is selected.
func (c *Config) IsGarnet() bool {
	return c.GetString("network") == NetworkGarnet
}

// SetCPUs changes the number of CPUs. The number of directories follows.
// With Garnet, the mesh rows are set to the largest divisor of the CPU count
// that does not exceed its square root, which keeps the mesh close to square.
func (c *Config) SetCPUs(n int) error {
	if n < 1 {
		return fmt.Errorf("num_cpus: %w: %d", ErrInvalidValue, n)
	}

	c.values["num_cpus"] = n
	c.values["num_dirs"] = n

	if c.IsGarnet() {
		c.values["mesh_rows"] = MeshRowsFor(n)
	}

	return nil
}

// MeshRowsFor returns the preferred number of mesh rows for n routers.
func MeshRowsFor(n int) int {
	if n < 1 {
		return 1
	}

	rows := int(math.Sqrt(float64(n)))
	for rows > 1 && n%rows != 0 {
		rows--
	}

	if rows < 1 {
		rows = 1
	}

	return rows
}

// SetNetwork selects the network model and the matching default topology.
func (c *Config) SetNetwork(network string) error {
	if err := c.Set("network", network); err != nil {
		return err
	}

	switch network {
	case NetworkGarnet:
		c.values["topology"] = TopologyMeshXY
	case NetworkSimple:
		c.values["topology"] = TopologyCrossbar
	}

	return nil
}

// MeshShape returns the rows and columns of a Garnet mesh. ok is false if
// the CPUs cannot be evenly split into the rows.
func (c *Config) MeshShape() (rows, cols int, ok bool) {
	cpus := c.GetInt("num_cpus")
	rows = c.GetInt("mesh_rows")

	if rows < 1 || cpus%rows != 0 {
		return rows, 0, false
	}

	return rows, cpus / rows, true
}

// A Check is the outcome of validating a configuration.
type Check struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Validate checks the constraints between parameters.
func (c *Config) Validate() Check {
	if !c.IsGarnet() {
		return Check{Valid: true}
	}

	cpus := c.GetInt("num_cpus")
	rows, cols, ok := c.MeshShape()

	if !ok {
		return Check{
			Valid: false,
			Message: fmt.Sprintf(
				"Invalid Configuration: the number of CPUs (%d) must be "+
					"perfectly divisible by the number of mesh rows (%d).",
				cpus, rows),
		}
	}

	return Check{
		Valid: true,
		Message: fmt.Sprintf(
			"Valid Configuration: with %d CPUs and %d mesh rows, "+
				"the script will create a %d x %d mesh network.",
			cpus, rows, rows, cols),
	}
}

// MarshalJSON encodes the values as a JSON object.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.values)
}

// UnmarshalJSON starts from the defaults and applies the given object.
func (c *Config) UnmarshalJSON(data []byte) error {
	var m map[string]any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&m); err != nil {
		return err
	}

	*c = *New()

	return c.SetAll(m)
}

func coerce(kind Kind, value any) (any, error) {
	switch kind {
	case KindInt:
		return toInt(value)
	case KindFloat:
		return toFloat(value)
	case KindBool:
		return toBool(value)
	case KindString, KindSize, KindClock:
		return toString(value)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidValue, kind)
	}
}

func toInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return nil, fmt.Errorf("%w: %d is out of range", ErrInvalidValue, v)
		}

		return int(v), nil
	case uint64:
		if v > math.MaxInt {
			return nil, fmt.Errorf("%w: %d is out of range", ErrInvalidValue, v)
		}

		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
		}

		// float64(math.MaxInt) rounds up to a power of two, which is already
		// out of range.
		if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
			return nil, fmt.Errorf("%w: %v is out of range", ErrInvalidValue, v)
		}

		return int(v), nil
	case json.Number:
		return toInt(string(v))
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, nil
		}

		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}

		return toInt(f)
	default:
		return nil, fmt.Errorf("%w: %T is not an integer", ErrInvalidValue, value)
	}
}

func toFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return toFloat(string(v))
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}

		return f, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, value)
	}
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
		}

		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, value)
	}
}

func toString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return string(v), nil
	case int, int64, float64, bool:
		return FormatValue(v), nil
	default:
		return nil, fmt.Errorf("%w: %T is not a string", ErrInvalidValue, value)
	}
}

// FormatValue renders a value the way it appears on the command line.
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case bool:
		if v {
			return "True"
		}

		return "False"
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat writes floats the way the gem5 option parser prints them: the
// shortest exact digits, always with a decimal point, and an exponent for very
// small or very large magnitudes.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}

// Apply sets a value the way the configuration form does: changing the CPU
// count or the network also updates the parameters that depend on them.
func (c *Config) Apply(key string, value any) error {
	switch key {
	case "num_cpus":
		n, err := toInt(value)
		if err != nil {
			return fmt.Errorf("num_cpus: %w", err)
		}

		return c.SetCPUs(n.(int))
	case "network":
		s, err := toString(value)
		if err != nil {
			return fmt.Errorf("network: %w", err)
		}

		return c.SetNetwork(s.(string))
	default:
		return c.Set(key, value)
	}
}
