package users

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"freight-service/internal/domain"
	"freight-service/pkg/logger"
)

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("documents", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/register", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRegisterRoute(t *testing.T) {
	f := newFixture(t)
	router := NewHandler(f.svc, logger.NewNop()).AuthRoutes(func(next http.Handler) http.Handler { return next })

	fields := func(phone string) map[string]string {
		return map[string]string{
			"phone_number":    phone,
			"full_name":       "aziz karimov",
			"password":        goodPassword,
			"role":            "driver",
			"date_of_birth":   "1990-04-12",
			"registration_id": "fcm-7",
			"device_type":     "ios",
		}
	}
	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(multipartRequest(t, fields("+998907654321"), map[string]string{"license.pdf": "pdf", "passport.jpg": "jpg"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d %s", rec.Code, rec.Body)
	}
	var env struct {
		Data AuthResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	acc := env.Data.Account
	if env.Data.Token == "" || acc == nil || acc.Role != domain.RoleDriver || acc.FullName != "Aziz karimov" {
		t.Fatalf("response = %+v", env.Data)
	}
	if acc.DateOfBirth == nil || acc.DateOfBirth.Format("2006-01-02") != "1990-04-12" {
		t.Fatalf("date of birth = %v", acc.DateOfBirth)
	}
	if n := countFiles(t, f.docDir); n != 2 {
		t.Fatalf("stored documents = %d", n)
	}
	<-f.devices.done

	if rec := serve(multipartRequest(t, fields("+998907654322"), nil)); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no documents = %d", rec.Code)
	}
	if _, err := f.store.User().GetByPhone(context.Background(), "+998907654322"); err == nil {
		t.Fatal("user without documents was kept")
	}

	bad := fields("+998907654323")
	bad["date_of_birth"] = "12 April"
	if rec := serve(multipartRequest(t, bad, map[string]string{"license.pdf": "pdf"})); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date = %d", rec.Code)
	}

	plain := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"phone_number":"+998907654324"}`))
	plain.Header.Set("Content-Type", "application/json")
	if rec := serve(plain); rec.Code != http.StatusBadRequest {
		t.Fatalf("json body = %d", rec.Code)
	}
}
