// Package config loads the JSON gateway configuration, optionally
// taking the module block from a local TOML override file.
package config

import (
	"encoding/json"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/alephtx/mdgw/internal/model"
)

// ModuleMeta carries process-wide naming used by logging.
type ModuleMeta struct {
	ModuleName string `json:"module_name"`
	LogPath    string `json:"log_path"`
}

// AppConfig is the top-level JSON document.
type AppConfig struct {
	Module      *ModuleMeta        `json:"module,omitempty"`
	Connections []ConnectionConfig `json:"connections"`
}

// ConnectionConfig describes one exchange connection and all of its
// streams. MdSize/ShmBlockNum are aliases for the per-instrument ring
// length; EffectiveMdSize resolves them.
type ConnectionConfig struct {
	Exchange string `json:"exchange"`

	MdSize       uint32 `json:"md_size,omitempty"`
	ShmBlockNum  uint32 `json:"shm_block_num,omitempty"`
	ShmPrefix    string `json:"shm_prefix,omitempty"`

	HeartbeatIntervalSec   int `json:"hb_interval_sec,omitempty"`
	PingIntervalSec        int `json:"ping_interval_sec,omitempty"`
	RedunResetOnHeartbeat  bool `json:"redun_reset_on_hb,omitempty"`
	RedunResetOnThreshold  int  `json:"redun_reset_on_threshold,omitempty"`
	LatencyPrintIntervalMS int  `json:"latency_print_interval_ms,omitempty"`

	Spot    *ProductConfig `json:"spot,omitempty"`
	Futures *FuturesConfig `json:"futures,omitempty"`
	Swap    *ProductConfig `json:"swap,omitempty"`

	UDPSender   *UDPSenderConfig   `json:"udp_sender,omitempty"`
	UDPReceiver *UDPReceiverConfig `json:"udp_receiver,omitempty"`
}

// EffectiveMdSize returns the first non-zero of MdSize/ShmBlockNum,
// defaulting to 100,000.
func (c *ConnectionConfig) EffectiveMdSize() uint32 {
	if c.MdSize != 0 {
		return c.MdSize
	}
	if c.ShmBlockNum != 0 {
		return c.ShmBlockNum
	}
	return 100_000
}

// ShmNames names the four per-record-kind shm regions for one product.
type ShmNames struct {
	Bbo    string `json:"shm_bbo,omitempty"`
	Agg    string `json:"shm_agg,omitempty"`
	Trade  string `json:"shm_trade,omitempty"`
	Depth5 string `json:"shm_depth5,omitempty"`
}

// ProductConfig is a generic per-product-type sub-block (spot, swap).
type ProductConfig struct {
	Symbols []string `json:"symbols,omitempty"`

	RedunConnCount int `json:"redun_conn_count,omitempty"`
	ConnCount      int `json:"conn_count,omitempty"`

	// Four independent CPU-affinity hints, one per concern. Pointers so
	// core 0 is distinguishable from "not configured".
	CPUAffinityConn     *int `json:"cpu_affinity_conn,omitempty"`
	CPUAffinitySBE      *int `json:"cpu_affinity_sbe,omitempty"`
	CPUAffinityDedup    *int `json:"cpu_affinity_dedup,omitempty"`
	CPUAffinityDedupSBE *int `json:"cpu_affinity_dedup_sbe,omitempty"`

	ShmNames ShmNames `json:"shm,omitempty"`

	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
}

// EffectiveConnCount resolves RedunConnCount/ConnCount, defaulting to 1.
func (p *ProductConfig) EffectiveConnCount() int {
	if p.RedunConnCount != 0 {
		return p.RedunConnCount
	}
	if p.ConnCount != 0 {
		return p.ConnCount
	}
	return 1
}

// FuturesConfig layers Binance's dual field naming (ubase_* vs the
// generic fields) over ProductConfig.
type FuturesConfig struct {
	ProductConfig

	UBaseSymbols  []string `json:"ubase_symbols,omitempty"`
	UBaseConnCount int     `json:"ubase_conn_count,omitempty"`
	CBaseSymbols  []string `json:"cbase_symbols,omitempty"`
	CBaseConnCount int     `json:"cbase_conn_count,omitempty"`
}

// EffectiveSymbols returns the first non-empty of UBaseSymbols/Symbols.
func (f *FuturesConfig) EffectiveSymbols() []string {
	if len(f.UBaseSymbols) > 0 {
		return f.UBaseSymbols
	}
	return f.Symbols
}

// EffectiveConnCount returns the first non-zero of UBaseConnCount and the
// embedded ProductConfig's resolved count.
func (f *FuturesConfig) EffectiveConnCount() int {
	if f.UBaseConnCount != 0 {
		return f.UBaseConnCount
	}
	return f.ProductConfig.EffectiveConnCount()
}

// UDPSenderConfig configures the fan-out sender.
type UDPSenderConfig struct {
	IP           string `json:"ip"`
	Port         int    `json:"port"`
	CPUAffinity  *int   `json:"cpu_affinity,omitempty"`
	EnabledField *bool  `json:"enabled,omitempty"`
}

// IsEnabled defaults to true when the field is omitted.
func (u *UDPSenderConfig) IsEnabled() bool {
	return u == nil || u.EnabledField == nil || *u.EnabledField
}

// UDPReceiverConfig configures the symmetric ingress mirror.
type UDPReceiverConfig struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`

	RecvCPUAffinity *int `json:"recv_cpu_affinity,omitempty"`

	SpotSymbols  []string `json:"spot_symbols,omitempty"`
	UBaseSymbols []string `json:"ubase_symbols,omitempty"`

	SpotShm  ShmNames `json:"spot_shm,omitempty"`
	UBaseShm ShmNames `json:"ubase_shm,omitempty"`
}

// localOverride holds the only part of the local TOML file that is read:
// its [module] table, which replaces the JSON module block when present.
type localOverride struct {
	Module *ModuleMeta `toml:"module"`
}

// Load reads and parses the JSON configuration at path. If
// config.local.toml exists in the same directory and has a [module]
// table, that table replaces the module block; no other field is
// overridden.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}

	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}

	if len(cfg.Connections) == 0 {
		return nil, &model.ConfigError{Path: path, Err: errNoConnections}
	}

	overridePath := localOverridePath(path)
	if overrideRaw, err := os.ReadFile(overridePath); err == nil {
		var override localOverride
		if err := toml.Unmarshal(overrideRaw, &override); err != nil {
			return nil, &model.ConfigError{Path: overridePath, Err: err}
		}
		if override.Module != nil {
			cfg.Module = override.Module
		}
	}

	return &cfg, nil
}

func localOverridePath(jsonPath string) string {
	dir := jsonPath
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' {
			return dir[:i+1] + "config.local.toml"
		}
	}
	return "config.local.toml"
}
