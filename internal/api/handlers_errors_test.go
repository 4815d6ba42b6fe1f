package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doRawRequest(router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestMalformedBodies(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	cookie := loginAs(t, router, core, "Ana", "ana@symbiot.com.mx")

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/gastos/api/transactions"},
		{http.MethodPost, "/gastos/api/gastos"},
		{http.MethodPost, "/gastos/api/ingresos"},
		{http.MethodPut, "/gastos/api/transactions/1"},
	}
	for _, ep := range endpoints {
		rr := doRawRequest(router, ep.method, ep.path, "{bad}", cookie)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400 for bad JSON, got %d", ep.method, ep.path, rr.Code)
		}
		if msg := parseJSON(rr)["message"]; msg != "Cuerpo JSON inválido" {
			t.Fatalf("%s %s: unexpected message %v", ep.method, ep.path, msg)
		}
	}

	rr := doRawRequest(router, http.MethodPost, "/gastos/api/gastos", `{"cantidad":"muchos"}`, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("non numeric amount: expected 400, got %d", rr.Code)
	}
}

func TestNumericStringsAccepted(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	cookie := loginAs(t, router, core, "Ana", "ana@symbiot.com.mx")

	body := `{"fecha":"2024-05-01","concepto":"Cuerdas","empresa_id":"1","forma_pago":"Efectivo","cantidad":"4","precio_unitario":"12.5"}`
	rr := doRawRequest(router, http.MethodPost, "/gastos/api/gastos", body, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if total := parseJSON(rr)["data"].(map[string]interface{})["total"]; total != 50.0 {
		t.Fatalf("expected total 50, got %v", total)
	}
}

func TestUpdateMissingTransaction(t *testing.T) {
	router, core, cleanup := setupTestRouter(t)
	defer cleanup()
	cookie := loginAs(t, router, core, "Ana", "ana@symbiot.com.mx")

	update := gasto("Renta", 1, 100)
	update["tipo"] = "G"
	rr := doRequest(router, http.MethodPut, "/gastos/api/transactions/999", update, cookie)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = doRequest(router, http.MethodPut, "/gastos/api/transactions/0", update, cookie)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for id 0, got %d", rr.Code)
	}
}
