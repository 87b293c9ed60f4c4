package config

import (
	"fmt"
	"time"
)

// maxTimeout 超时上限，防止把 "5" 误写成 5h 之类的配置
const maxTimeout = 10 * time.Minute

// Validate 连接超时校验
func (s *ServerConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return err
	}
	if s.ReadTimeout > maxTimeout {
		return fmt.Errorf("server.read-timeout must not exceed %s, got %s", maxTimeout, s.ReadTimeout)
	}
	if s.WriteTimeout > maxTimeout {
		return fmt.Errorf("server.write-timeout must not exceed %s, got %s", maxTimeout, s.WriteTimeout)
	}
	return nil
}
