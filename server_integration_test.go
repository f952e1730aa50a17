package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"kopkar/pkg/keanggotaan"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	_ = os.Setenv("LEDGER_BACKEND", "file")
	_ = os.Setenv("LEDGER_DIR", t.TempDir())
	initDB()
	store, err := newLedgerStore()
	if err != nil {
		t.Fatalf("ledger store: %v", err)
	}
	svc := keanggotaan.NewService(store, keanggotaan.NewLedgerAuditSink(store))
	r := gin.Default()
	setupRoutes(r, svc)
	return r
}

func TestFullExitReturnFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register staff login
	regBody, _ := json.Marshal(map[string]string{"username": "petugas1", "password": "pass12"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "")
	if resp.Code != 200 && resp.Code != 409 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "petugas1", "password": "pass12"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Enroll a member
	memBody, _ := json.Marshal(map[string]string{"nik": "3171000000000001", "nama": "Budi Santoso"})
	resp = performRequest(r, http.MethodPost, "/anggota", bytes.NewBuffer(memBody), token)
	if resp.Code != 200 {
		t.Fatalf("enroll failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var member map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &member)
	memberID, _ := member["id"].(string)
	if memberID == "" {
		t.Fatalf("no member id in response: %+v", member)
	}

	// 4. Deposit into two savings kinds
	for _, dep := range []map[string]any{
		{"jenis": "pokok", "jumlah": 500000},
		{"jenis": "wajib", "jumlah": 100000},
	} {
		b, _ := json.Marshal(dep)
		resp = performRequest(r, http.MethodPost, "/anggota/"+memberID+"/simpanan", bytes.NewBuffer(b), token)
		if resp.Code != 200 {
			t.Fatalf("deposit %v failed status=%d body=%s", dep, resp.Code, resp.Body.String())
		}
	}

	// 5. Mark exited
	exitBody, _ := json.Marshal(map[string]string{"exit_date": "2024-12-05", "reason": "resigned"})
	resp = performRequest(r, http.MethodPost, "/anggota/"+memberID+"/keluar", bytes.NewBuffer(exitBody), token)
	if resp.Code != 200 {
		t.Fatalf("keluar failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Calculated return amount
	resp = performRequest(r, http.MethodGet, "/anggota/"+memberID+"/pengembalian", nil, token)
	if resp.Code != 200 {
		t.Fatalf("hitung failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var amount map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &amount)
	if total, _ := amount["total"].(float64); total != 600000 {
		t.Fatalf("return total = %v, want 600000", amount["total"])
	}

	// 7. Validation is advisory
	valBody, _ := json.Marshal(map[string]string{"method": "cash"})
	resp = performRequest(r, http.MethodPost, "/anggota/"+memberID+"/pengembalian/validasi", bytes.NewBuffer(valBody), token)
	if resp.Code != 200 {
		t.Fatalf("validasi failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var validation map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &validation)
	if valid, _ := validation["valid"].(bool); !valid {
		t.Fatalf("validation blocked: %+v", validation)
	}

	// 8. Process the return
	procBody, _ := json.Marshal(map[string]string{"method": "cash"})
	resp = performRequest(r, http.MethodPost, "/anggota/"+memberID+"/pengembalian", bytes.NewBuffer(procBody), token)
	if resp.Code != 200 {
		t.Fatalf("proses failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var pengembalian map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &pengembalian)
	if total, _ := pengembalian["totalAmount"].(float64); total != 600000 {
		t.Fatalf("pengembalian total = %v, want 600000", pengembalian["totalAmount"])
	}

	// 9. Proof document
	resp = performRequest(r, http.MethodGet, "/anggota/"+memberID+"/pengembalian/bukti", nil, token)
	if resp.Code != 200 {
		t.Fatalf("bukti failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var proof map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &proof)
	if num, _ := proof["number"].(string); num == "" {
		t.Fatalf("empty proof number: %+v", proof)
	}

	// 10. Exited member is gone from the operational list but present in the
	// dedicated exited view.
	resp = performRequest(r, http.MethodGet, "/anggota", nil, token)
	if resp.Code != 200 {
		t.Fatalf("list failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	if bytes.Contains(resp.Body.Bytes(), []byte(memberID)) {
		t.Fatalf("exited member leaked into operational list: %s", resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/anggota-keluar", nil, token)
	if resp.Code != 200 || !bytes.Contains(resp.Body.Bytes(), []byte(memberID)) {
		t.Fatalf("exited member missing from keluar view status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 11. Repair endpoint needs administrator role
	resp = performRequest(r, http.MethodPost, "/admin/repair", bytes.NewBufferString("{}"), token)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for petugas repair, got %d", resp.Code)
	}

	// 12. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/anggota", nil, "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list, got %d", unauth.Code)
	}

	// 13. A second process call returns the same pengembalian
	resp = performRequest(r, http.MethodPost, fmt.Sprintf("/anggota/%s/pengembalian", memberID), bytes.NewBuffer(procBody), token)
	if resp.Code != 200 {
		t.Fatalf("retry proses failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var retry map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &retry)
	if retry["id"] != pengembalian["id"] {
		t.Fatalf("retry minted a new pengembalian: %v != %v", retry["id"], pengembalian["id"])
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
