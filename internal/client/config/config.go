package config

import (
	"flag"
	"os"
	"sync"
	"time"

	"github.com/LeoCommon/gprsclient/pkg/log"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

const (
	ProductName             = "gprsclient"
	UserdataDirectoryPrefix = "/data/"
	ConfigFolder            = "config/"

	ConfigPathPrefix = ConfigFolder + ProductName + "/"
	ConfigFile       = "config.toml"

	DefaultConfigPath = UserdataDirectoryPrefix + ConfigPathPrefix + ConfigFile

	DefaultDebugModeValue = false
)

type CLIFlags struct {
	ConfigPath string
	Debug      bool

	// Override the request section
	Host string
	Path string
}

type MainConfig struct {
	Client  ClientConfig  `toml:"client"`
	Modem   ModemConfig   `toml:"modem"`
	Request RequestConfig `toml:"request"`
}

type ConfigManager interface {
	lock()
	unlock()
	Verify() error
}

type ConfigManagerKey string

const (
	CMClient  ConfigManagerKey = "client"
	CMModem   ConfigManagerKey = "modem"
	CMRequest ConfigManagerKey = "request"
)

type ConfigManagerStore map[ConfigManagerKey]ConfigManager

type Manager struct {
	mu sync.RWMutex

	// The actual config, never share this with other code
	config *MainConfig

	// The config manager store (pointers)
	store ConfigManagerStore

	// The config path
	path string
}

func (m *Manager) Client() *ClientConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMClient].(*ClientConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMClient found")
		return nil
	}
	return cm
}

func (m *Manager) Modem() *ModemConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMModem].(*ModemConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMModem found")
		return nil
	}
	return cm
}

func (m *Manager) Request() *RequestConfigManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm, ok := m.store[CMRequest].(*RequestConfigManager)
	if !ok {
		log.Panic("implementation mistake, no CMRequest found")
		return nil
	}
	return cm
}

func (m *Manager) Load(path string, acceptEmptyConfig bool) error {
	data, err := os.ReadFile(path)
	if err == nil {
		if err = toml.Unmarshal(data, m.config); err != nil {
			log.Error("failed to unmarshal config file", zap.Error(err))
		}
	}

	if err != nil && !acceptEmptyConfig {
		return err
	}

	// Store the load path
	m.path = path

	m.initStore()
	return m.Verify()
}

func (m *Manager) initStore() {
	// Each config section manager gets his own locking primitive
	m.store = ConfigManagerStore{
		CMClient:  NewClientConfigManager(&m.config.Client),
		CMModem:   NewModemConfigManager(&m.config.Modem),
		CMRequest: NewRequestConfigManager(&m.config.Request),
	}
}

// Verify checks that all sections contain the mandatory values
func (m *Manager) Verify() error {
	for key, value := range m.store {
		if err := value.Verify(); err != nil {
			log.Error("invalid config section", zap.String("section", string(key)), zap.Error(err))
			return err
		}
	}

	// Debug log output, the apn password is not logged
	safe := *m.config
	if safe.Modem.APNPassword != "" {
		safe.Modem.APNPassword = "***"
	}
	log.Debug("active config", zap.Any("config", safe), zap.String("path", m.path))

	return nil
}

// Save locks all configs and writes it to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Lock all config managers
	for _, value := range m.store {
		value.lock()
	}

	// Unlock the config managers when we are done
	defer func() {
		for _, value := range m.store {
			value.unlock()
		}
	}()

	// Marshal the config, does not use getters, so no locking => safe
	configData, err := toml.Marshal(m.config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(m.path, configData, 0644); err != nil {
		log.Error("Failed to write config file", zap.Error(err))
		return err
	}

	return nil
}

// ApplyFlags lets the command line override the request target
func (m *Manager) ApplyFlags(flags CLIFlags) {
	if flags.Debug {
		m.Client().Set(func(c *ClientConfig) {
			c.Debug = true
		})
	}

	m.Request().Set(func(c *RequestConfig) {
		if flags.Host != "" {
			c.Host = flags.Host
		}
		if flags.Path != "" {
			c.Path = flags.Path
		}
	})
}

func New() *MainConfig {
	return &MainConfig{}
}

func NewManager() *Manager {
	return &Manager{
		mu:     sync.RWMutex{},
		store:  make(ConfigManagerStore),
		config: New(),
	}
}

// NewManagerFor manages an already built config that is saved to path
func NewManagerFor(path string, conf MainConfig) *Manager {
	m := NewManager()
	*m.config = conf
	m.path = path
	m.initStore()
	return m
}

func ParseCLIFlags() CLIFlags {
	flags := CLIFlags{}

	flag.StringVar(&flags.ConfigPath, "config", DefaultConfigPath, "relative or absolute path to the config file")
	flag.BoolVar(&flags.Debug, "debug", DefaultDebugModeValue, "true if the debug logging should be enabled")
	flag.StringVar(&flags.Host, "host", "", "overrides the host of the request section")
	flag.StringVar(&flags.Path, "path", "", "overrides the path of the request section")

	flag.Parse()

	return flags
}

type TOMLDuration time.Duration

func (d *TOMLDuration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = TOMLDuration(x)
	return nil
}

func (c TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(c).String()), nil
}

func (c TOMLDuration) Value() time.Duration {
	return time.Duration(c)
}
