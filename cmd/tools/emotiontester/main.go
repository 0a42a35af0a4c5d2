package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/config"
	"github.com/zhouzirui/empathai/backend/internal/service/companion"
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

	mode := flag.String("mode", "analyze", "测试模式: classify, respond 或 analyze")
	text := flag.String("text", "", "输入文本")
	visionFlag := flag.String("vision", "", "视觉情绪 (analyze 模式，可为空)")
	emotionFlag := flag.String("emotion", "neutral", "回复所用情绪 (respond 模式)")
	stream := flag.Bool("stream", false, "流式打印回复")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")

	flag.Parse()

	if *text == "" {
		flag.Usage()
		log.Fatal("请通过 -text 指定输入文本")
	}

	classifier, responder, err := companion.NewCollaborators(context.Background(), cfg.AI)
	if err != nil {
		log.Fatalf("初始化模型失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "classify":
		label, err := classifier.Classify(ctx, *text)
		if err != nil {
			log.Fatalf("分类失败: %v", err)
		}
		fmt.Printf("%s %s\n", emotion.Emoji(label), label)
	case "respond":
		label, err := emotion.ParseLabel(*emotionFlag)
		if err != nil {
			log.Fatalf("无效情绪: %v", err)
		}
		reply, err := respond(ctx, responder, label, *text, *stream)
		if err != nil {
			log.Fatalf("回复生成失败: %v", err)
		}
		if !*stream {
			fmt.Println(reply)
		}
	case "analyze":
		runAnalyze(ctx, classifier, responder, *text, *visionFlag, *stream)
	default:
		flag.Usage()
		log.Fatalf("未知模式 %q", *mode)
	}
}

func respond(ctx context.Context, responder companion.StreamingResponder, label emotion.Label, text string, stream bool) (string, error) {
	if !stream {
		return responder.Respond(ctx, label, text)
	}
	reply, err := responder.RespondStream(ctx, label, text, func(delta string) {
		fmt.Print(delta)
	})
	fmt.Println()
	return reply, err
}

func runAnalyze(ctx context.Context, classifier companion.Classifier, responder companion.StreamingResponder, text, visionRaw string, stream bool) {
	visionLabel, err := emotion.ParseOptionalLabel(visionRaw)
	if err != nil {
		log.Fatalf("无效视觉情绪: %v", err)
	}

	pipeline := companion.NewPipeline(classifier, responder, nil)
	start := time.Now()
	var observer *companion.Observer
	if stream {
		observer = &companion.Observer{OnDelta: func(delta string) { fmt.Fprint(os.Stderr, delta) }}
	}
	result, err := pipeline.Run(ctx, text, visionLabel, observer)
	if stream {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		log.Fatalf("分析失败: %v", err)
	}

	log.Printf("分析完成 耗时=%s", time.Since(start).Round(time.Millisecond))
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
