// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/clients/config_client"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// Config 是整个服务的配置树。
// 来源优先级：内置默认值 < 本地 yaml 文件 < Nacos 配置中心 < 环境变量。
type Config struct {
	App struct {
		// 预订窗口：reserve 后多少分钟内未进入支付即可被回收
		ReservationWindowMinutes int `yaml:"reservationWindowMinutes"`
		// 过期清扫的执行间隔
		SweepIntervalMinutes int `yaml:"sweepIntervalMinutes"`
		// /cron 路由的共享密钥
		CronSecret string    `yaml:"cronSecret"`
		RateLimit  RateLimit `yaml:"rateLimit"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers          string `yaml:"brokers"`
			FulfillmentTopic string `yaml:"fulfillmentTopic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Stripe struct {
			APIKey        string `yaml:"apiKey"`
			WebhookSecret string `yaml:"webhookSecret"`
			BaseURL       string `yaml:"baseURL"`
		} `yaml:"stripe"`
		Zookeeper struct {
			Servers string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`
}

// RateLimit 描述限流中间件的窗口与额度
type RateLimit struct {
	Store         string         `yaml:"store"` // local | redis
	WindowSeconds int            `yaml:"windowSeconds"`
	Default       int            `yaml:"default"`
	Routes        map[string]int `yaml:"routes"`    // 按路由前缀，如 /orders
	Overrides     map[string]int `yaml:"overrides"` // 按子路由片段，如 /reserve
}

var (
	configMu          sync.RWMutex
	currentConfig     *Config
	nacosConfigClient config_client.IConfigClient
)

// GetCurrentConfig 返回当前生效的配置快照
func GetCurrentConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return currentConfig
}

func setCurrentConfig(cfg *Config) {
	configMu.Lock()
	currentConfig = cfg
	configMu.Unlock()
}

// Init 加载配置。服务的 main 必须最先调用它。
func Init() {
	cfg := defaultConfig()

	if path := getEnv("CONFIG_PATH", "configs/config.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				log.Fatalf("FATAL: invalid config file %s: %v", path, err)
			}
		}
	}

	// 配置中心优先于本地文件，便于多实例统一调整限流与窗口
	if addrs := os.Getenv("NACOS_SERVER_ADDRS"); addrs != "" {
		loadFromNacos(addrs, cfg)
	}

	applyEnvOverrides(cfg)
	setCurrentConfig(cfg)
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.ReservationWindowMinutes = 5
	cfg.App.SweepIntervalMinutes = 5
	cfg.App.RateLimit = RateLimit{
		Store:         "local",
		WindowSeconds: 60,
		Default:       60,
		Routes:        map[string]int{"/orders": 20, "/esims": 60},
		Overrides:     map[string]int{"/reserve": 10, "/checkout": 10, "/cancel": 10},
	}
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/ilotel?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Kafka.FulfillmentTopic = "esim-fulfillment"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Stripe.BaseURL = "https://api.stripe.com"
	return cfg
}

// applyEnvOverrides 允许通过环境变量覆盖敏感项，避免密钥进入配置文件
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"MYSQL_DSN":             &cfg.Infra.Mysql.DSN,
		"REDIS_ADDRS":           &cfg.Infra.Redis.Addrs,
		"KAFKA_BROKERS":         &cfg.Infra.Kafka.Brokers,
		"JAEGER_ENDPOINT":       &cfg.Infra.Jaeger.Endpoint,
		"STRIPE_API_KEY":        &cfg.Infra.Stripe.APIKey,
		"STRIPE_WEBHOOK_SECRET": &cfg.Infra.Stripe.WebhookSecret,
		"CRON_SECRET":           &cfg.App.CronSecret,
		"ZOOKEEPER_SERVERS":     &cfg.Infra.Zookeeper.Servers,
	}
	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			*target = value
		}
	}
}

// loadFromNacos 从配置中心拉取 yaml 并监听后续变更
func loadFromNacos(addrs string, cfg *Config) {
	dataID := getEnv("NACOS_DATA_ID", "shop-service.yaml")
	group := getEnv("NACOS_GROUP", "DEFAULT_GROUP")

	var serverConfigs []constant.ServerConfig
	for _, addr := range strings.Split(addrs, ",") {
		host, port, err := splitHostPort(addr)
		if err != nil {
			log.Fatalf("FATAL: invalid nacos address %q: %v", addr, err)
		}
		serverConfigs = append(serverConfigs, *constant.NewServerConfig(host, port))
	}
	clientConfig := *constant.NewClientConfig(
		constant.WithNotLoadCacheAtStart(true),
		constant.WithLogDir("/tmp/nacos/log"),
		constant.WithCacheDir("/tmp/nacos/cache"),
		constant.WithLogLevel("warn"),
		constant.WithNamespaceId(os.Getenv("NACOS_NAMESPACE")),
	)

	cc, err := clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: serverConfigs,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to create nacos config client: %v", err)
	}
	nacosConfigClient = cc

	content, err := cc.GetConfig(vo.ConfigParam{DataId: dataID, Group: group})
	if err != nil {
		log.Printf("WARN: could not fetch config %s from nacos, keeping local config: %v", dataID, err)
		return
	}
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		log.Fatalf("FATAL: invalid config %s in nacos: %v", dataID, err)
	}

	// 热更新：限流额度等运行期可调项在收到推送后整体替换
	err = cc.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			next := defaultConfig()
			if err := yaml.Unmarshal([]byte(data), next); err != nil {
				log.Printf("ERROR: ignoring invalid config push from nacos: %v", err)
				return
			}
			applyEnvOverrides(next)
			setCurrentConfig(next)
			log.Printf("Config reloaded from nacos (dataId=%s)", dataId)
		},
	})
	if err != nil {
		log.Printf("WARN: failed to listen for nacos config changes: %v", err)
	}
}
