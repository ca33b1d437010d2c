// ABOUTME: Minimal fake agent CLI for manual and E2E testing — prints a scripted stream-json run.
// ABOUTME: Usage: fake-claude -p "prompt" --output-format stream-json [--fail N] [--delay 50ms]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

func main() {
	prompt := flag.String("p", "", "Prompt text")
	outputFormat := flag.String("output-format", "stream-json", "Output format")
	verbose := flag.Bool("verbose", false, "Verbose output")
	skipPermissions := flag.Bool("dangerously-skip-permissions", false, "Skip permission prompts")
	resume := flag.String("resume", "", "Session token to resume")
	sessionID := flag.String("session-id", "fake-session-0001", "Session id to report")
	failCode := flag.Int("fail", 0, "Exit with this code after the text deltas, before the result record")
	delay := flag.Duration("delay", 25*time.Millisecond, "Pause between records")
	withFileOp := flag.Bool("file-op", true, "Emit a tool_use/tool_result pair")
	flag.Parse()

	_ = *verbose
	_ = *skipPermissions

	if *outputFormat != "stream-json" {
		log.Fatalf("unsupported output format: %s", *outputFormat)
	}

	if *resume != "" {
		*sessionID = *resume
	}

	if err := run(*prompt, *sessionID, *failCode, *delay, *withFileOp); err != nil {
		log.Fatal(err)
	}
}

func run(prompt, sessionID string, failCode int, delay time.Duration, withFileOp bool) error {
	emit := func(record map[string]any) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		time.Sleep(delay)
		return nil
	}

	if err := emit(map[string]any{
		"type":       "system",
		"subtype":    "init",
		"session_id": sessionID,
	}); err != nil {
		return err
	}

	deltas := []string{"Looking at the page... ", "I updated the styles ", "as requested."}
	for _, text := range deltas {
		if err := emit(map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"content": []map[string]any{
					{"type": "text", "text": text},
				},
			},
		}); err != nil {
			return err
		}
	}

	if failCode != 0 {
		fmt.Fprintln(os.Stderr, "fake-claude: simulated failure")
		os.Exit(failCode)
	}

	if withFileOp {
		if err := emit(map[string]any{
			"type": "assistant",
			"message": map[string]any{
				"content": []map[string]any{
					{
						"type": "tool_use",
						"id":   "toolu_fake_01",
						"name": "Edit",
						"input": map[string]any{
							"file_path":  "/tmp/page/styles.css",
							"old_string": "color: red;",
							"new_string": "color: blue;",
						},
					},
				},
			},
		}); err != nil {
			return err
		}

		if err := emit(map[string]any{
			"type": "user",
			"message": map[string]any{
				"content": []map[string]any{
					{"type": "tool_result", "tool_use_id": "toolu_fake_01"},
				},
			},
			"tool_use_result": map[string]any{
				"filePath":  "/tmp/page/styles.css",
				"oldString": "color: red;",
				"newString": "color: blue;",
				"structuredPatch": []map[string]any{
					{
						"oldStart": 3, "oldLines": 1,
						"newStart": 3, "newLines": 1,
						"lines": []string{"-color: red;", "+color: blue;"},
					},
				},
			},
		}); err != nil {
			return err
		}
	}

	return emit(map[string]any{
		"type":       "result",
		"subtype":    "success",
		"session_id": sessionID,
		"result":     "Looking at the page... I updated the styles as requested.",
	})
}
