package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "medicine":
		handleMedicine(args)
	case "reminder":
		handleReminder(args)
	case "safety":
		handleSafety(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: capsulebuddy auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleMedicine(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: capsulebuddy medicine <add|search>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "add":
		addMedicine(args[1:])
	case "search":
		searchMedicine(args[1:])
	default:
		fmt.Printf("unknown medicine command: %s\n", subCmd)
	}
}

func handleReminder(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: capsulebuddy reminder <add|list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "add":
		addReminder(args[1:])
	case "list":
		listReminders(args[1:])
	default:
		fmt.Printf("unknown reminder command: %s\n", subCmd)
	}
}

func handleSafety(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: capsulebuddy safety <check>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "check":
		checkSafety(args[1:])
	default:
		fmt.Printf("unknown safety command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	conditions := fs.String("conditions", "", "comma-separated health conditions (optional)")

	fs.Parse(args)

	if *name == "" || *email == "" || *password == "" {
		fmt.Println("Error: name, email, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"name":     *name,
		"email":    *email,
		"password": *password,
	}
	if *conditions != "" {
		payload["conditions"] = splitCSV(*conditions)
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
		if userID, ok := result["user_id"].(string); ok {
			saveUserID(userID)
		}
		fmt.Printf("✓ Logged in as: %s\n", *email)
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	os.Remove(userIDFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	userID := loadUserID()
	if userID == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (user: %s)\n", userID)
}

// Medicine commands
func addMedicine(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "medicine name")
	description := fs.String("description", "", "description (optional)")
	sideEffects := fs.String("side-effects", "", "comma-separated side effects (optional)")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"name":        *name,
		"description": *description,
	}
	if *sideEffects != "" {
		payload["side_effects"] = splitCSV(*sideEffects)
	}

	data, _ := json.Marshal(payload)
	resp, err := doPost("/medicine", data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Medicine added: %s (id: %v)\n", *name, result["medicine_id"])
	} else {
		fmt.Printf("✗ Failed to add medicine: %v\n", result)
	}
}

func searchMedicine(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: capsulebuddy medicine search <name>")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/medicine/search/"+url.PathEscape(args[0]), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Medicines []map[string]interface{} `json:"medicines"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, m := range result.Medicines {
		fmt.Fprintf(w, "%v\t%v\t%v\n", m["id"], m["name"], m["description"])
	}
	w.Flush()
}

// Reminder commands
func addReminder(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	userID := fs.String("user", loadUserID(), "user ID (defaults to logged-in user)")
	medicineID := fs.String("medicine", "", "medicine ID")
	dosage := fs.String("dosage", "", "dosage, e.g. 200mg")
	frequency := fs.String("frequency", "daily", "frequency")
	times := fs.String("times", "", "comma-separated times in HH:MM, e.g. 08:00,20:00")
	startDate := fs.String("start", "", "start date YYYY-MM-DD")
	endDate := fs.String("end", "", "end date YYYY-MM-DD (optional)")

	fs.Parse(args)

	if *userID == "" || *medicineID == "" || *dosage == "" || *times == "" || *startDate == "" {
		fmt.Println("Error: user, medicine, dosage, times, and start are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{
		"user_id":        *userID,
		"medicine_id":    *medicineID,
		"dosage":         *dosage,
		"frequency":      *frequency,
		"specific_times": splitCSV(*times),
		"start_date":     *startDate,
	}
	if *endDate != "" {
		payload["end_date"] = *endDate
	}

	data, _ := json.Marshal(payload)
	resp, err := doPost("/reminder", data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	switch {
	case resp.StatusCode == 201:
		fmt.Printf("✓ Reminder added (id: %v)\n", result["reminder_id"])
	case result["warning"] != nil:
		fmt.Printf("✗ %v\n", result["warning"])
		if issues, ok := result["issues"].([]interface{}); ok {
			for _, issue := range issues {
				fmt.Printf("  - %v\n", issue)
			}
		}
	default:
		fmt.Printf("✗ Failed to add reminder: %v\n", result)
	}
}

func listReminders(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	userID := fs.String("user", loadUserID(), "user ID (defaults to logged-in user)")

	fs.Parse(args)

	if *userID == "" {
		fmt.Println("Error: user is required (log in or pass -user)")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/reminders/"+url.PathEscape(*userID), nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Reminders []map[string]interface{} `json:"reminders"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEDICINE\tDOSAGE\tTIMES\tSTART\tEND\tACTIVE")
	for _, r := range result.Reminders {
		end := "-"
		if r["end_date"] != nil {
			end = fmt.Sprintf("%v", r["end_date"])
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			r["medicine_name"], r["dosage"], joinTimes(r["times"]), r["start_date"], end, r["active"])
	}
	w.Flush()
}

// Safety commands
func checkSafety(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	userID := fs.String("user", loadUserID(), "user ID (defaults to logged-in user)")
	medicineID := fs.String("medicine", "", "medicine ID")

	fs.Parse(args)

	if *userID == "" || *medicineID == "" {
		fmt.Println("Error: user and medicine are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"user_id": *userID, "medicine_id": *medicineID}
	data, _ := json.Marshal(payload)
	resp, err := doPost("/check-safety", data)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Safe     bool     `json:"safe"`
		Issues   []string `json:"issues"`
		Warnings []string `json:"warnings"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	if result.Safe {
		fmt.Println("✓ No safety issues found")
		return
	}
	fmt.Println("✗ This medicine may not be safe for you")
	for _, issue := range result.Issues {
		fmt.Printf("  - %s\n", issue)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("CAPSULEBUDDY_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func doPost(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest("POST", getAPIURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	return http.DefaultClient.Do(req)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func joinTimes(v interface{}) string {
	times, ok := v.([]interface{})
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, fmt.Sprintf("%v", t))
	}
	return strings.Join(parts, ",")
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return home + "/.capsulebuddy"
}

func tokenFile() string {
	return configDir() + "/token"
}

func userIDFile() string {
	return configDir() + "/user"
}

func saveToken(token string) error {
	os.MkdirAll(configDir(), 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func saveUserID(id string) error {
	os.MkdirAll(configDir(), 0700)
	return os.WriteFile(userIDFile(), []byte(id), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func loadUserID() string {
	data, _ := os.ReadFile(userIDFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`CapsuleBuddy CLI

Usage:
  capsulebuddy <command> [options]

Commands:
  auth      User authentication (register, login, logout, who)
  medicine  Medicine catalog (add, search)
  reminder  Medication reminders (add, list)
  safety    Safety checks (check)
  help      Show this help message

Environment Variables:
  CAPSULEBUDDY_API    API endpoint (default: http://localhost:8080/api)

Examples:
  capsulebuddy auth register -name "Jane Doe" -email jane@example.com -password pass -conditions asthma
  capsulebuddy auth login -email jane@example.com -password pass
  capsulebuddy medicine search aspirin
  capsulebuddy reminder add -medicine <id> -dosage 200mg -times 08:00,20:00 -start 2026-01-01
`)
}
