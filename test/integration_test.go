package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestRegisterAndLoginFlow(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL()+"/api/register", map[string]any{
		"name":       "Alice",
		"email":      "alice@example.com",
		"password":   "Password123",
		"conditions": []string{"Asthma"},
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	if body["message"] != "User created successfully" || body["user_id"] == "" {
		t.Fatalf("unexpected register response: %v", body)
	}

	resp = postJSON(t, server.URL()+"/api/login", map[string]any{
		"email":    "alice@example.com",
		"password": "Password123",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	body = decodeBody(t, resp)
	if body["message"] != "Login successful" {
		t.Fatalf("unexpected login message: %v", body["message"])
	}
	if body["name"] != "Alice" {
		t.Fatalf("expected name in login response, got %v", body["name"])
	}
	if token, ok := body["token"].(string); !ok || token == "" {
		t.Fatalf("expected a token in the login response")
	}
	conditions, ok := body["conditions"].([]any)
	if !ok || len(conditions) != 1 {
		t.Fatalf("expected conditions array, got %v", body["conditions"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL()+"/api/register", map[string]any{
		"name": "Bob", "email": "bob@example.com", "password": "Password123",
	})
	resp.Body.Close()

	resp = postJSON(t, server.URL()+"/api/login", map[string]any{
		"email": "bob@example.com", "password": "wrong",
	})
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	body := decodeBody(t, resp)
	if body["error"] != "Invalid credentials" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestMedicineAddAndSearch(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp := postJSON(t, server.URL()+"/api/medicine", map[string]any{
		"name":         "Ibuprofen",
		"description":  "NSAID pain reliever",
		"side_effects": []string{"nausea"},
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	if body["medicine_id"] == "" {
		t.Fatalf("expected medicine_id, got %v", body)
	}

	httpResp, err := http.Get(server.URL() + "/api/medicine/search/ibu")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	AssertStatusCode(t, httpResp, http.StatusOK)
	searchBody := decodeBody(t, httpResp)
	medicines, ok := searchBody["medicines"].([]any)
	if !ok || len(medicines) != 1 {
		t.Fatalf("expected one search hit, got %v", searchBody["medicines"])
	}
	hit := medicines[0].(map[string]any)
	if hit["name"] != "Ibuprofen" {
		t.Fatalf("unexpected search hit: %v", hit)
	}
	if _, ok := hit["side_effects"].([]any); !ok {
		t.Fatalf("side_effects must be an array, got %v", hit["side_effects"])
	}
}

func TestReminderCreateAndList(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	userID, medicineID := seedUserAndMedicine(t, server, nil)

	resp := postJSON(t, server.URL()+"/api/reminder", map[string]any{
		"user_id":        userID,
		"medicine_id":    medicineID,
		"dosage":         "200mg",
		"frequency":      "twice daily",
		"specific_times": []string{"08:00", "20:00"},
		"start_date":     "2026-01-01",
		"end_date":       "2026-01-31",
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	if body["message"] != "Reminder added successfully" || body["reminder_id"] == "" {
		t.Fatalf("unexpected create response: %v", body)
	}
	check, ok := body["safety_check"].(map[string]any)
	if !ok || check["safe"] != true {
		t.Fatalf("expected safe safety_check in response, got %v", body["safety_check"])
	}

	httpResp, err := http.Get(server.URL() + "/api/reminders/" + userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	AssertStatusCode(t, httpResp, http.StatusOK)
	listBody := decodeBody(t, httpResp)
	reminders, ok := listBody["reminders"].([]any)
	if !ok || len(reminders) != 1 {
		t.Fatalf("expected one reminder, got %v", listBody["reminders"])
	}
	item := reminders[0].(map[string]any)
	if item["medicine_name"] != "Ibuprofen" {
		t.Fatalf("expected resolved medicine name, got %v", item["medicine_name"])
	}
	if item["start_date"] != "2026-01-01" || item["end_date"] != "2026-01-31" {
		t.Fatalf("unexpected dates: %v / %v", item["start_date"], item["end_date"])
	}
	if item["active"] != true {
		t.Fatalf("new reminders must be active")
	}
	times, ok := item["times"].([]any)
	if !ok || len(times) != 2 {
		t.Fatalf("expected two times, got %v", item["times"])
	}
}

func TestReminderOpenEndedDateSerializesNull(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	userID, medicineID := seedUserAndMedicine(t, server, nil)

	resp := postJSON(t, server.URL()+"/api/reminder", map[string]any{
		"user_id":        userID,
		"medicine_id":    medicineID,
		"dosage":         "5ml",
		"frequency":      "daily",
		"specific_times": []string{"09:00"},
		"start_date":     "2026-01-01",
	})
	AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	httpResp, err := http.Get(server.URL() + "/api/reminders/" + userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	listBody := decodeBody(t, httpResp)
	item := listBody["reminders"].([]any)[0].(map[string]any)
	if item["end_date"] != nil {
		t.Fatalf("open-ended reminder must serialize end_date as null, got %v", item["end_date"])
	}
}

func TestReminderBlockedByContraindication(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	server.Labels.set([]string{"Do not use in patients with asthma."}, nil)
	userID, medicineID := seedUserAndMedicine(t, server, []string{"Asthma"})

	resp := postJSON(t, server.URL()+"/api/reminder", map[string]any{
		"user_id":        userID,
		"medicine_id":    medicineID,
		"dosage":         "200mg",
		"frequency":      "daily",
		"specific_times": []string{"08:00"},
		"start_date":     "2026-01-01",
	})
	AssertStatusCode(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["warning"] != "This medicine may not be safe for you" {
		t.Fatalf("expected safety warning, got %v", body)
	}
	issues, ok := body["issues"].([]any)
	if !ok || len(issues) != 1 {
		t.Fatalf("expected one issue, got %v", body["issues"])
	}
	if issues[0] != "Not recommended for patients with Asthma" {
		t.Fatalf("unexpected issue text: %v", issues[0])
	}

	// The reminder must not have been created
	httpResp, err := http.Get(server.URL() + "/api/reminders/" + userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	listBody := decodeBody(t, httpResp)
	if reminders := listBody["reminders"].([]any); len(reminders) != 0 {
		t.Fatalf("blocked reminder must not be persisted, got %v", reminders)
	}
}

func TestReminderValidation(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	userID, medicineID := seedUserAndMedicine(t, server, nil)

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing times", map[string]any{
			"user_id": userID, "medicine_id": medicineID,
			"dosage": "200mg", "frequency": "daily", "start_date": "2026-01-01",
		}},
		{"bad start date", map[string]any{
			"user_id": userID, "medicine_id": medicineID,
			"dosage": "200mg", "frequency": "daily",
			"specific_times": []string{"08:00"}, "start_date": "01/01/2026",
		}},
		{"unknown user", map[string]any{
			"user_id": "u-missing", "medicine_id": medicineID,
			"dosage": "200mg", "frequency": "daily",
			"specific_times": []string{"08:00"}, "start_date": "2026-01-01",
		}},
		{"unknown medicine", map[string]any{
			"user_id": userID, "medicine_id": "m-missing",
			"dosage": "200mg", "frequency": "daily",
			"specific_times": []string{"08:00"}, "start_date": "2026-01-01",
		}},
	}

	for _, tc := range cases {
		resp := postJSON(t, server.URL()+"/api/reminder", tc.payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestCheckSafetyEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	server.Labels.set([]string{"Contraindicated in severe asthma."}, []string{"May cause dizziness."})
	userID, medicineID := seedUserAndMedicine(t, server, []string{"Asthma"})

	resp := postJSON(t, server.URL()+"/api/check-safety", map[string]any{
		"user_id":     userID,
		"medicine_id": medicineID,
	})
	AssertStatusCode(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["safe"] != false {
		t.Fatalf("expected unsafe verdict, got %v", body)
	}
	if _, ok := body["issues"].([]any); !ok {
		t.Fatalf("issues must be an array, got %v", body["issues"])
	}
	if _, ok := body["warnings"].([]any); !ok {
		t.Fatalf("warnings must be an array, got %v", body["warnings"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL() + "/healthz")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)
}

// seedUserAndMedicine registers a user with the given conditions and adds an
// Ibuprofen medicine, returning both IDs.
func seedUserAndMedicine(t *testing.T, server *TestServerHelper, conditions []string) (string, string) {
	t.Helper()

	resp := postJSON(t, server.URL()+"/api/register", map[string]any{
		"name":       "Alice",
		"email":      "alice@example.com",
		"password":   "Password123",
		"conditions": conditions,
	})
	body := decodeBody(t, resp)
	userID, _ := body["user_id"].(string)
	if userID == "" {
		t.Fatalf("failed to seed user: %v", body)
	}

	resp = postJSON(t, server.URL()+"/api/medicine", map[string]any{
		"name":        "Ibuprofen",
		"description": "NSAID pain reliever",
	})
	body = decodeBody(t, resp)
	medicineID, _ := body["medicine_id"].(string)
	if medicineID == "" {
		t.Fatalf("failed to seed medicine: %v", body)
	}

	return userID, medicineID
}
