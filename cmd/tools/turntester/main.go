package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/companionbot/backend/internal/bootstrap"
	"github.com/zhouzirui/companionbot/backend/internal/config"
	"github.com/zhouzirui/companionbot/backend/internal/service/ai"
	"github.com/zhouzirui/companionbot/backend/internal/service/chat"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	message := flag.String("message", "", "要测试的用户消息")
	username := flag.String("user", "turntester", "消息所属用户名")
	persist := flag.Bool("persist", false, "将生成的对话写入配置的存储")
	timeout := flag.Duration("timeout", 90*time.Second, "整体超时时间")
	flag.Parse()

	text := *message
	if text == "" {
		text = strings.Join(flag.Args(), " ")
	}
	if strings.TrimSpace(text) == "" {
		flag.Usage()
		log.Fatal("请通过 -message 或位置参数提供消息")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	storeCfg := cfg.Store
	if !*persist {
		storeCfg = config.StoreConfig{Driver: config.DriverMemory}
	}
	stores, err := bootstrap.OpenStores(ctx, storeCfg)
	if err != nil {
		log.Fatalf("存储初始化失败: %v", err)
	}
	defer stores.Close()

	classifier := bootstrap.NewClassifier(cfg)
	generator := ai.NewGenerator(bootstrap.NewResponder(ctx, cfg.AI), ai.GeneratorConfig{Timeout: cfg.AI.GenerationTimeout})
	svc := chat.NewService(classifier, generator, stores.Turns, chat.Config{MaxMessageLength: cfg.Chat.MaxMessageLength})

	start := time.Now()
	run := svc.Compose
	if *persist {
		run = svc.Submit
	}
	turn, err := run(ctx, *username, text)
	if err != nil {
		log.Fatalf("对话处理失败: %v", err)
	}

	out := map[string]any{
		"turn":           turn,
		"sentiment_mode": classifier.Mode(),
		"persisted":      *persist,
		"store":          stores.Driver,
		"elapsed_ms":     time.Since(start).Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "输出失败: %v\n", err)
		os.Exit(1)
	}
}
