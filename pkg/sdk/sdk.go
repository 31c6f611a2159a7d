package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const CTJSON string = "application/json"

type SDK interface {
	// Status returns the runtime status of the node.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status.Throttle.Level)
	Status() (Status, error)

	// Privacy returns the privacy budget of the node.
	//
	// example:
	//  privacy, _ := sdk.Privacy()
	//  fmt.Println(privacy.Remaining)
	Privacy() (Privacy, error)

	// ResetPrivacy resets the privacy budget and returns the new state.
	//
	// example:
	//  privacy, _ := sdk.ResetPrivacy()
	//  fmt.Println(privacy.Exhausted)
	ResetPrivacy() (Privacy, error)

	// EnqueueTask queues a task instance on its lane.
	//
	// example:
	//  task, _ := sdk.EnqueueTask("snapshot_creation")
	//  fmt.Println(task.Lane)
	EnqueueTask(kind string) (Task, error)

	// SendInput queues a user input for the next tick.
	//
	// example:
	//  _ = sdk.SendInput("what is differential privacy?")
	SendInput(text string) error
}

type nodeSDK struct {
	nodeURL string
	client  *http.Client
}

type Config struct {
	NodeURL         string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	return &nodeSDK{
		nodeURL: strings.TrimSuffix(cfg.NodeURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type errorRes struct {
	Err string `json:"error"`
}

func (sdk *nodeSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Err != "" {
			return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, e.Err)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
