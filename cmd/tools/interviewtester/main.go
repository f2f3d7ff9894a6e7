package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/mock-interview/backend/internal/analysis/speech"
	model "github.com/zhouzirui/mock-interview/backend/internal/model/interview"
)

// 在终端里逐行作答，驱动 /chat 与 /feedback。输入 :report 或 EOF 结束并生成报告。
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	defaultAddr := "http://localhost:5000"
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && !strings.Contains(port, ":") {
		defaultAddr = "http://localhost:" + port
	}

	addr := flag.String("addr", defaultAddr, "后端地址")
	role := flag.String("role", "Software Engineer", "面试岗位")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 45*time.Second, "单次请求超时时间")
	flag.Parse()

	sessionID := *session
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	c := &client{base: strings.TrimRight(*addr, "/"), http: &http.Client{Timeout: *timeout}}
	log.Printf("session=%s role=%q addr=%s", sessionID, *role, c.base)
	fmt.Println("Interviewer: Tell me about yourself.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		started := time.Now()
		if !scanner.Scan() {
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}
		if answer == ":report" {
			break
		}

		stats := speech.Analyze(answer, time.Since(started))
		fmt.Printf("  [wpm=%d fillers=%d]\n", stats.WPM, stats.FillerCount)

		var turn model.TurnResult
		status, err := c.post(context.Background(), "/chat", map[string]string{
			"message":   answer,
			"sessionId": sessionID,
			"jobRole":   *role,
		}, &turn)
		if err != nil {
			log.Printf("[ERROR] chat failed: %v", err)
			continue
		}
		if status != http.StatusOK {
			log.Printf("[WARN] chat returned %d, showing fallback", status)
		}
		fmt.Printf("  Tip: %s\nInterviewer: %s\n", turn.Tip, turn.NextQuestion)
	}

	var report model.FinalReport
	status, err := c.post(context.Background(), "/feedback", map[string]string{"sessionId": sessionID}, &report)
	if err != nil {
		log.Fatalf("report failed: %v", err)
	}
	if status != http.StatusOK {
		log.Fatalf("report failed with status %d", status)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}

type client struct {
	base string
	http *http.Client
}

func (c *client) post(ctx context.Context, path string, body, dst any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return resp.StatusCode, fmt.Errorf("unexpected response %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp.StatusCode, nil
}
