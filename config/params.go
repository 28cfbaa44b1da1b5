// Package config describes the gem5 Garnet synthetic-traffic options and
// turns a configuration record into a simulator command line.
package config

import (
	"fmt"
	"math"
)

// Kind determines how a parameter value is stored and rendered.
type Kind int

// A list of all supported parameter kinds.
const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	// KindSize and KindClock are strings made of a number and a unit, such
	// as "512MB" or "1GHz".
	KindSize
	KindClock
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindSize:
		return "size"
	case KindClock:
		return "clock"
	default:
		return "unknown"
	}
}

// MarshalText lets the kind appear by name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SizeUnits are the units accepted by size parameters.
var SizeUnits = []string{"kB", "MB", "GB", "TB"}

// CacheSizeUnits are the units offered for cache sizes.
var CacheSizeUnits = []string{"kB", "MB", "GB"}

// ClockUnits are the units accepted by clock parameters.
var ClockUnits = []string{"kHz", "MHz", "GHz"}

// MemTypes lists the memory models known by gem5.
var MemTypes = []string{
	"CfiMemory", "DDR3_1600_8x8", "DDR3_2133_8x8", "DDR4_2400_16x4",
	"DDR4_2400_4x16", "DDR4_2400_8x8", "DRAMInterface", "GDDR5_4000_2x32",
	"HBM_1000_4H_1x128", "HBM_1000_4H_1x64", "HBM_2000_4H_1x64",
	"HMC_2500_1x32", "LPDDR2_S4_1066_1x32", "LPDDR3_1600_1x32",
	"LPDDR5_5500_1x16_8B_BL32", "LPDDR5_5500_1x16_BG_BL16",
	"LPDDR5_5500_1x16_BG_BL32", "LPDDR5_6400_1x16_8B_BL32",
	"LPDDR5_6400_1x16_BG_BL16", "LPDDR5_6400_1x16_BG_BL32",
	"NVMInterface", "NVM_2400_1x64", "QoSMemSinkInterface", "SimpleMemory",
	"WideIO_200_1x128",
}

// SyntheticTraffic lists the traffic patterns of garnet_synth_traffic.py.
var SyntheticTraffic = []string{
	"uniform_random", "tornado", "bit_complement", "bit_reverse",
	"bit_rotation", "neighbor", "shuffle", "transpose",
}

// Networks lists the Ruby network models.
var Networks = []string{"simple", "garnet"}

// Built-in topology names.
const (
	TopologyCrossbar = "Crossbar"
	TopologyMeshXY   = "Mesh_XY"
)

// Network names.
const (
	NetworkSimple = "simple"
	NetworkGarnet = "garnet"
)

// Option is one selectable value of an enumerated parameter.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// A Param describes one simulator option.
type Param struct {
	Key     string   `json:"key"`
	Kind    Kind     `json:"kind"`
	Default any      `json:"default"`
	Group   string   `json:"group"`
	Label   string   `json:"label"`
	Help    string   `json:"help,omitempty"`
	Options []Option `json:"options,omitempty"`
	Units   []string `json:"units,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Step    float64  `json:"step,omitempty"`
}

// Flag returns the command-line flag of the parameter.
func (p Param) Flag() string {
	return "--" + flagName(p.Key)
}

// Parameter groups, in display order.
const (
	GroupApp     = "Executable"
	GroupSystem  = "System, CPU, and Simulation Control"
	GroupMemory  = "Memory Configuration"
	GroupCache   = "Cache Configuration"
	GroupNetwork = "Ruby and Network Configuration"
	GroupTraffic = "Synthetic Traffic Injection"
)

// check tells if a value of the right kind is allowed for the parameter.
func (p Param) check(v any) error {
	if len(p.Options) > 0 && !p.hasOption(v) {
		return fmt.Errorf("%w: %v is not one of the options", ErrInvalidValue, v)
	}

	var f float64

	switch v := v.(type) {
	case int:
		f = float64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v is not a finite number", ErrInvalidValue, v)
		}

		f = v
	default:
		return nil
	}

	if p.Min != nil && f < *p.Min {
		return fmt.Errorf("%w: %v is below %v", ErrInvalidValue, v, *p.Min)
	}

	return nil
}

func (p Param) hasOption(v any) bool {
	for _, o := range p.Options {
		if o.Value == v {
			return true
		}
	}

	return false
}

func atLeast(v float64) *float64 {
	return &v
}

func strOptions(values []string) []Option {
	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: v}
	}

	return opts
}

var params = []Param{
	{Key: "gem5_path", Kind: KindString, Group: GroupApp,
		Default: "../gem5-tracer/build/NULL/gem5.debug",
		Label:   "gem5 Executable Path",
		Help:    "Path to the gem5 executable (e.g., ./build/NULL/gem5.opt)"},
	{Key: "script_path", Kind: KindString, Group: GroupApp,
		Default: "../gem5-tracer/configs/example/garnet_synth_traffic.py",
		Label:   "Script Path",
		Help:    "Path to the python configuration script to run."},

	{Key: "num_cpus", Kind: KindInt, Default: 16, Group: GroupSystem,
		Label: "Number of CPUs", Min: atLeast(1), Step: 1,
		Help: "Number of CPUs to simulate. When using the Garnet network, " +
			"this will also auto-update mesh-rows to a valid value."},
	{Key: "sys_voltage", Kind: KindString, Default: "1.0V", Group: GroupSystem,
		Label: "System Voltage",
		Help:  "Top-level voltage for blocks running at system power supply."},
	{Key: "sys_clock", Kind: KindClock, Default: "1GHz", Group: GroupSystem,
		Label: "System Clock", Units: ClockUnits,
		Help: "Top-level clock for blocks running at system frequency."},
	{Key: "sim_cycles", Kind: KindInt, Default: 1000, Group: GroupSystem,
		Label: "Simulation Cycles", Min: atLeast(0),
		Help: "Number of simulation cycles to run."},
	{Key: "abs_max_tick", Kind: KindInt, Default: 1000000, Group: GroupSystem,
		Label: "Absolute Max Tick", Min: atLeast(0), Step: 1000,
		Help: "Run to absolute simulated tick specified."},
	{Key: "rel_max_tick", Kind: KindInt, Default: 0, Group: GroupSystem,
		Label: "Relative Max Tick", Min: atLeast(0), Step: 1000,
		Help: "Simulate for a specified number of ticks relative to the start tick."},
	{Key: "maxtime", Kind: KindFloat, Default: 0.0, Group: GroupSystem,
		Label: "Max Time (seconds)", Min: atLeast(0),
		Help: "Run to the specified absolute simulated time in seconds."},

	{Key: "mem_type", Kind: KindString, Default: "DDR3_1600_8x8", Group: GroupMemory,
		Label: "Memory Type", Options: strOptions(MemTypes),
		Help: "Type of memory to use."},
	{Key: "mem_size", Kind: KindSize, Default: "512MB", Group: GroupMemory,
		Label: "Memory Size", Units: SizeUnits, Help: "Total memory size."},
	{Key: "mem_channels", Kind: KindInt, Default: 1, Group: GroupMemory,
		Label: "Memory Channels", Min: atLeast(1), Help: "Number of memory channels."},
	{Key: "mem_ranks", Kind: KindInt, Default: 2, Group: GroupMemory,
		Label: "Memory Ranks per Channel", Min: atLeast(1),
		Help: "Number of memory ranks per channel."},
	{Key: "enable_dram_powerdown", Kind: KindBool, Default: false, Group: GroupMemory,
		Label: "Enable DRAM Powerdown",
		Help:  "Enable low-power states in DRAMInterface."},
	{Key: "memchecker", Kind: KindBool, Default: false, Group: GroupMemory,
		Label: "Enable Memchecker", Help: "Enable the memory checker."},

	{Key: "caches", Kind: KindBool, Default: false, Group: GroupCache,
		Label: "Enable Caches"},
	{Key: "l2cache", Kind: KindBool, Default: false, Group: GroupCache,
		Label: "Enable L2 Cache"},
	{Key: "num_l2caches", Kind: KindInt, Default: 1, Group: GroupCache,
		Label: "Num L2 Caches", Min: atLeast(1)},
	{Key: "num_l3caches", Kind: KindInt, Default: 1, Group: GroupCache,
		Label: "Num L3 Caches", Min: atLeast(0)},
	{Key: "l1d_size", Kind: KindSize, Default: "64kB", Group: GroupCache,
		Label: "L1D Size", Units: CacheSizeUnits},
	{Key: "l1i_size", Kind: KindSize, Default: "32kB", Group: GroupCache,
		Label: "L1I Size", Units: CacheSizeUnits},
	{Key: "l2_size", Kind: KindSize, Default: "2MB", Group: GroupCache,
		Label: "L2 Size", Units: CacheSizeUnits},
	{Key: "l3_size", Kind: KindSize, Default: "16MB", Group: GroupCache,
		Label: "L3 Size", Units: CacheSizeUnits},
	{Key: "l1d_assoc", Kind: KindInt, Default: 2, Group: GroupCache,
		Label: "L1D Assoc", Min: atLeast(1)},
	{Key: "l1i_assoc", Kind: KindInt, Default: 2, Group: GroupCache,
		Label: "L1I Assoc", Min: atLeast(1)},
	{Key: "l2_assoc", Kind: KindInt, Default: 8, Group: GroupCache,
		Label: "L2 Assoc", Min: atLeast(1)},
	{Key: "l3_assoc", Kind: KindInt, Default: 16, Group: GroupCache,
		Label: "L3 Assoc", Min: atLeast(1)},
	{Key: "cacheline_size", Kind: KindInt, Default: 64, Group: GroupCache,
		Label: "Cacheline Size", Min: atLeast(16), Step: 16},

	{Key: "ruby", Kind: KindBool, Default: false, Group: GroupNetwork,
		Label: "Enable Ruby"},
	{Key: "ruby_clock", Kind: KindClock, Default: "2GHz", Group: GroupNetwork,
		Label: "Ruby Clock", Units: ClockUnits},
	{Key: "access_backing_store", Kind: KindBool, Default: false, Group: GroupNetwork,
		Label: "Access Backing Store"},
	{Key: "num_dirs", Kind: KindInt, Default: 16, Group: GroupNetwork,
		Label: "Number of Directories", Min: atLeast(1),
		Help: "Number of memory directories. Can be set independently of CPUs."},
	{Key: "recycle_latency", Kind: KindInt, Default: 10, Group: GroupNetwork,
		Label: "Recycle Latency", Min: atLeast(0)},
	{Key: "network", Kind: KindString, Default: NetworkSimple, Group: GroupNetwork,
		Label: "Network Type", Options: strOptions(Networks)},
	{Key: "topology", Kind: KindString, Default: TopologyCrossbar, Group: GroupNetwork,
		Label: "Topology"},
	{Key: "mesh_rows", Kind: KindInt, Default: 1, Group: GroupNetwork,
		Label: "Mesh Rows", Min: atLeast(1)},
	{Key: "router_latency", Kind: KindInt, Default: 1, Group: GroupNetwork,
		Label: "Router Latency", Min: atLeast(1)},
	{Key: "link_latency", Kind: KindInt, Default: 1, Group: GroupNetwork,
		Label: "Link Latency", Min: atLeast(1)},
	{Key: "link_width_bits", Kind: KindInt, Default: 128, Group: GroupNetwork,
		Label: "Link Width (bits)", Min: atLeast(8), Step: 8},
	{Key: "vcs_per_vnet", Kind: KindInt, Default: 4, Group: GroupNetwork,
		Label: "VCs per VNet", Min: atLeast(1)},
	{Key: "garnet_deadlock_threshold", Kind: KindInt, Default: 50000,
		Group: GroupNetwork, Label: "Garnet Deadlock Threshold", Min: atLeast(1)},
	{Key: "routing_algorithm", Kind: KindInt, Default: 0, Group: GroupNetwork,
		Label: "Routing Algorithm", Options: []Option{
			{Value: 0, Label: "0: Weight-based"},
			{Value: 1, Label: "1: XY"},
			{Value: 2, Label: "2: Custom"},
		}},
	{Key: "network_fault_model", Kind: KindBool, Default: false, Group: GroupNetwork,
		Label: "Enable Network Fault Model"},
	{Key: "garnet_tracer", Kind: KindBool, Default: false, Group: GroupNetwork,
		Label: "Enable Garnet Tracer", Help: "Enable the Garnet tracer."},
	{Key: "numa_high_bit", Kind: KindInt, Default: 0, Group: GroupNetwork,
		Label: "NUMA High Bit", Min: atLeast(0)},
	{Key: "interleaving_bits", Kind: KindInt, Default: 6, Group: GroupNetwork,
		Label: "Interleaving Bits", Min: atLeast(0)},
	{Key: "xor_low_bit", Kind: KindInt, Default: 0, Group: GroupNetwork,
		Label: "XOR Low Bit", Min: atLeast(0)},
	{Key: "ports", Kind: KindInt, Default: 16, Group: GroupNetwork,
		Label: "Ports", Min: atLeast(1)},

	{Key: "synthetic", Kind: KindString, Default: "uniform_random", Group: GroupTraffic,
		Label: "Synthetic Traffic Type", Options: strOptions(SyntheticTraffic)},
	{Key: "injectionrate", Kind: KindFloat, Default: 0.1, Group: GroupTraffic,
		Label: "Injection Rate", Min: atLeast(0),
		Help: "Injection rate in packets per cycle per node."},
	{Key: "precision", Kind: KindInt, Default: 3, Group: GroupTraffic,
		Label: "Precision", Min: atLeast(1)},
	{Key: "inj_vnet", Kind: KindInt, Default: -1, Group: GroupTraffic,
		Label: "Injection VNet", Options: []Option{
			{Value: -1, Label: "Random"},
			{Value: 0, Label: "0"},
			{Value: 1, Label: "1"},
			{Value: 2, Label: "2"},
		}},
	{Key: "num_packets_max", Kind: KindInt, Default: -1, Group: GroupTraffic,
		Label: "Max Packets to Inject",
		Help:  "Stop injecting after this many packets. -1 to disable."},
	{Key: "single_sender_id", Kind: KindInt, Default: -1, Group: GroupTraffic,
		Label: "Single Sender ID",
		Help:  "Only inject from this sender. -1 to disable."},
	{Key: "single_dest_id", Kind: KindInt, Default: -1, Group: GroupTraffic,
		Label: "Single Destination ID",
		Help:  "Only send to this destination. -1 to disable."},

	{Key: "param", Kind: KindString, Default: "", Group: GroupSystem,
		Label: "Set Parameter",
		Help:  "Set a SimObject parameter, e.g., 'system.cpu[0].max_insts_all_threads = 42'. One per line."},
	{Key: "mem_channels_intlv", Kind: KindInt, Default: 0, Group: GroupMemory,
		Label: "Memory Channels Interleave", Min: atLeast(0)},
	{Key: "external_memory_system", Kind: KindString, Default: "", Group: GroupMemory,
		Label: "External Memory System",
		Help:  "Use external ports of this port_type for caches."},
	{Key: "tlm_memory", Kind: KindString, Default: "", Group: GroupMemory,
		Label: "TLM Memory",
		Help:  "Use external port for SystemC TLM cosimulation."},
}

var paramIndex = func() map[string]int {
	m := make(map[string]int, len(params))
	for i, p := range params {
		m[p.Key] = i
	}

	return m
}()

// Params returns the parameter table in display order.
func Params() []Param {
	out := make([]Param, len(params))
	copy(out, params)

	return out
}

// Lookup returns the parameter with the given key.
func Lookup(key string) (Param, bool) {
	i, ok := paramIndex[key]
	if !ok {
		return Param{}, false
	}

	return params[i], true
}

// Keys that are part of the executable invocation rather than flags.
const (
	KeyGem5Path   = "gem5_path"
	KeyScriptPath = "script_path"
)

var notSweepable = map[string]bool{
	KeyGem5Path:   true,
	KeyScriptPath: true,
	"mem_type":    true,
	"synthetic":   true,
	"topology":    true,
}

// SweepableKeys returns the keys that can be used as the independent
// variable of an experiment.
func SweepableKeys() []string {
	keys := make([]string, 0, len(params))
	for _, p := range params {
		if !notSweepable[p.Key] {
			keys = append(keys, p.Key)
		}
	}

	return keys
}

// IsSweepable tells if a key can be swept.
func IsSweepable(key string) bool {
	_, ok := paramIndex[key]
	return ok && !notSweepable[key]
}
