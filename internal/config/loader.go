package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github-signal-radar/internal/common"
)

// Load 分层加载配置，优先级从低到高:
//  1. defaults()
//  2. YAML 文件 (RADAR_CONFIG 指定路径时)
//  3. 环境变量 (RADAR_ 前缀，RADAR_QUOTA_FLOOR -> quota_floor)
//
// godotenv 先把 .env 灌进环境变量 (文件不存在则静默跳过)，
// 之后 koanf 的 env provider 统一收口
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if path := os.Getenv("RADAR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "配置文件加载失败", err)
		}
	}

	envProvider := env.Provider("RADAR_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "radar_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, common.WrapError(common.ErrCodeConfig, "环境变量加载失败", err)
	}

	cfg := *defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, common.WrapError(common.ErrCodeConfig, "配置解析失败", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
