package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// Walks the full wizard happy path against a running instance. Exits
// non-zero on the first unexpected response.
func main() {
	base := os.Getenv("NGODESK_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	email := fmt.Sprintf("smoke-%d@smoke.ngodesk.org", rand.New(rand.NewSource(time.Now().UnixNano())).Int())

	var state struct {
		SessionID string `json:"session_id"`
		Step      int    `json:"step"`
	}
	call(client, http.MethodPost, base+"/v1/signup/sessions", nil, http.StatusCreated, &state)
	if state.Step != 1 {
		log.Fatalf("new session at step %d", state.Step)
	}
	sessURL := base + "/v1/signup/sessions/" + state.SessionID

	call(client, http.MethodPatch, sessURL+"/record", map[string]any{
		"organization_name": "Smoke Org",
		"organization_type": "NGO",
		"primary_currency":  "USD",
		"contact_name":      "Smoke Tester",
		"email":             email,
		"password":          "Abcd1234",
	}, http.StatusOK, nil)

	var adv struct {
		Step    int `json:"step"`
		Outcome *struct {
			Status      string `json:"status"`
			RedirectURL string `json:"redirect_url"`
		} `json:"outcome"`
	}
	call(client, http.MethodPost, sessURL+"/next", nil, http.StatusOK, &adv)
	if adv.Step != 2 {
		log.Fatalf("expected step 2, got %d", adv.Step)
	}

	call(client, http.MethodPut, sessURL+"/access/users", map[string]any{"enabled": true}, http.StatusOK, nil)
	call(client, http.MethodPut, sessURL+"/access/users/role", map[string]any{"role_id": "admin"}, http.StatusOK, nil)
	call(client, http.MethodPost, sessURL+"/access/validate", nil, http.StatusNoContent, nil)

	call(client, http.MethodPost, sessURL+"/next", nil, http.StatusOK, &adv)
	call(client, http.MethodPatch, sessURL+"/record", map[string]any{
		"pricing_plan":   "starter",
		"terms_accepted": true,
	}, http.StatusOK, nil)
	call(client, http.MethodPost, sessURL+"/next", nil, http.StatusOK, &adv)
	if adv.Step != 4 {
		log.Fatalf("expected step 4, got %d", adv.Step)
	}

	call(client, http.MethodPost, sessURL+"/next", nil, http.StatusOK, &adv)
	if adv.Outcome == nil || adv.Outcome.Status != "success" {
		log.Fatalf("submission did not succeed: %+v", adv.Outcome)
	}

	fmt.Printf("✅ signup smoke test passed: email=%s redirect=%s\n", email, adv.Outcome.RedirectURL)
}

func call(client *http.Client, method, url string, body any, wantStatus int, out any) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal %s %s: %v", method, url, err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request %s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
}
