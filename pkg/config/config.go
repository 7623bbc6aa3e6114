// Package config는 애플리케이션 설정을 관리하는 패키지입니다.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 인터페이스는 설정 값에 액세스하기 위한 메서드를 정의합니다.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string
	GetAll() map[string]interface{}
	// Unmarshal은 yaml 태그 기준으로 설정 전체를 구조체에 디코딩합니다.
	Unmarshal(out interface{}) error
}

// viperConfig는 viper를 사용하여 Config 인터페이스를 구현합니다.
type viperConfig struct {
	v *viper.Viper
}

func (c *viperConfig) GetString(key string) string        { return c.v.GetString(key) }
func (c *viperConfig) GetInt(key string) int              { return c.v.GetInt(key) }
func (c *viperConfig) GetBool(key string) bool            { return c.v.GetBool(key) }
func (c *viperConfig) GetStringSlice(key string) []string { return c.v.GetStringSlice(key) }
func (c *viperConfig) GetAll() map[string]interface{}     { return c.v.AllSettings() }

func (c *viperConfig) Unmarshal(out interface{}) error {
	return c.v.Unmarshal(out, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}))
}

// 설정 디렉토리 경로
const configDir = "configs"

// Load는 지정된 서비스 이름에 해당하는 설정 파일을 로드합니다.
//
// CONFIG_PATH가 .yaml/.yml 파일을 가리키면 그 파일을, 디렉토리를 가리키면
// {CONFIG_PATH}/{service}.yaml을, 비어 있으면 configs/{service}.yaml을 읽습니다.
// 모든 키는 {SERVICE}_{KEY} 환경 변수로 덮어쓸 수 있습니다 (예: PAYMENT_STRIPE_SECRET_KEY).
// defaults의 키는 파일에 없어도 환경 변수 바인딩 대상이 됩니다.
func Load(serviceName string, defaults map[string]interface{}) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	configPath := os.Getenv("CONFIG_PATH")
	switch ext := strings.ToLower(filepath.Ext(configPath)); {
	case ext == ".yaml" || ext == ".yml":
		v.SetConfigFile(configPath)
	case configPath != "":
		v.SetConfigName(serviceName)
		v.AddConfigPath(configPath)
	default:
		v.SetConfigName(serviceName)
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
		}
		// 파일이 없으면 기본값 + 환경 변수만으로 동작합니다
	}

	return &viperConfig{v: v}, nil
}
