// Package stats reads the statistics that gem5 dumps into stats.txt.
package stats

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the stats file does not exist.
var ErrNotFound = errors.New("stats file not found")

// DefaultKeys are the statistics kept by default.
var DefaultKeys = []string{
	"simSeconds",
	"hostSeconds",
	"system.ruby.network.average_flit_latency",
	"system.ruby.network.average_flit_network_latency",
	"system.ruby.network.average_flit_queueing_latency",
	"system.ruby.network.average_packet_latency",
	"system.ruby.network.average_packet_network_latency",
	"system.ruby.network.average_packet_queueing_latency",
}

var (
	statRegexp = regexp.MustCompile(
		`^([a-zA-Z0-9_:.\-]+) ([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?|nan|inf)`)
	spaceRegexp   = regexp.MustCompile(`\s+`)
	memCtrlRegexp = regexp.MustCompile(`^system\.mem_ctrls\d+`)
)

// A Value is a statistic. gem5 prints nan and inf for undefined values, which
// have no JSON number form, so those are kept as text.
type Value struct {
	Num  float64
	Text string
}

// Number creates a numeric value.
func Number(f float64) Value {
	return Value{Num: f}
}

// Float returns the value as a number. ok is false for nan and inf.
func (v Value) Float() (f float64, ok bool) {
	if v.Text != "" {
		return 0, false
	}

	return v.Num, true
}

// String returns the value as printed in stats.txt.
func (v Value) String() string {
	if v.Text != "" {
		return v.Text
	}

	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// MarshalJSON writes numbers as numbers and nan/inf as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Text != "" {
		return json.Marshal(v.Text)
	}

	return json.Marshal(v.Num)
}

// UnmarshalJSON accepts numbers and strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Value{Num: f}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("stat value %s: %w", data, err)
	}

	*v = ParseValue(s)

	return nil
}

// ParseValue converts the text of a statistic.
func ParseValue(s string) Value {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{Text: strings.ToLower(s)}
	}

	return Value{Num: f}
}

// Stats maps statistic names to their values.
type Stats map[string]Value

// Keys returns the names in sorted order.
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// A Parser selects statistics from a stats file.
type Parser struct {
	keys          map[string]bool
	memCtrlSuffix []string
	all           bool
}

// NewParser creates a Parser that keeps the default statistics.
func NewParser() *Parser {
	p := &Parser{keys: make(map[string]bool)}
	for _, k := range DefaultKeys {
		p.keys[k] = true
	}

	return p
}

// WithKeys adds exact statistic names to keep.
func (p *Parser) WithKeys(keys ...string) *Parser {
	for _, k := range keys {
		p.keys[k] = true
	}

	return p
}

// WithMemCtrlSuffixes keeps memory controller statistics, such as
// system.mem_ctrls0.dram.avgQLat, that end with one of the suffixes.
func (p *Parser) WithMemCtrlSuffixes(suffixes ...string) *Parser {
	p.memCtrlSuffix = append(p.memCtrlSuffix, suffixes...)
	return p
}

// WithAll keeps every statistic.
func (p *Parser) WithAll() *Parser {
	p.all = true
	return p
}

func (p *Parser) wants(key string) bool {
	if p.all || p.keys[key] {
		return true
	}

	if !memCtrlRegexp.MatchString(key) {
		return false
	}

	for _, s := range p.memCtrlSuffix {
		if strings.HasSuffix(key, s) {
			return true
		}
	}

	return false
}

// Parse reads statistics from r. When a statistic appears in several dumps,
// the last one wins.
func (p *Parser) Parse(r io.Reader) (Stats, error) {
	out := Stats{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(spaceRegexp.ReplaceAllString(scanner.Text(), " "))

		m := statRegexp.FindStringSubmatch(line)
		if m == nil || !p.wants(m[1]) {
			continue
		}

		out[m[1]] = ParseValue(m[2])
	}

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("reading stats: %w", err)
	}

	return out, nil
}

// ParseFile reads statistics from a file. A missing file gives an empty
// result and ErrNotFound.
func (p *Parser) ParseFile(path string) (Stats, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Stats{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	return p.Parse(f)
}

// ParseFile reads the default statistics from a file.
func ParseFile(path string) (Stats, error) {
	return NewParser().ParseFile(path)
}
