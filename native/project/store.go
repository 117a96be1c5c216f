package project

import "encoding/binary"

var (
	configKey     = []byte("project/config")
	lastIDKey     = []byte("project/last-id")
	projectPrefix = []byte("project/record/")
)

func projectKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte(nil), projectPrefix...), id)
}

func (e *Engine) loadConfig() (*Config, bool, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil || !ok {
		return nil, false, err
	}
	return cfg, true, nil
}

func (e *Engine) storeConfig(cfg *Config) error {
	return e.state.KVPut(configKey, cfg)
}

func (e *Engine) loadProject(id uint64) (*Project, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	record := new(Project)
	ok, err := e.state.KVGet(projectKey(id), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (e *Engine) storeProject(record *Project) error {
	return e.state.KVPut(projectKey(record.ID), record)
}
