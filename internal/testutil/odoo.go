package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
)

// FakeUser is an account on a fake database.
type FakeUser struct {
	UID      int
	Password string
}

// FakeModel is a table exposed through the object endpoint.
type FakeModel struct {
	Records []map[string]any
	// Denied lists operations check_access_rights refuses.
	Denied []string
}

// Hook overrides one "model.method" call on the object endpoint.
type Hook func(args []any, kwargs map[string]any) (any, error)

// CallRecord is one object-endpoint call seen by the server.
type CallRecord struct {
	Model  string
	Method string
	Args   []any
}

// Fault is an error answered with a specific fault code.
type Fault struct {
	Code    any
	Message string
}

func (f *Fault) Error() string { return f.Message }

// accessDenied mirrors the fault the server raises for odoo.exceptions.AccessDenied.
func accessDenied(msg string) error { return &Fault{Code: 3, Message: msg} }

// FakeOdoo is an httptest server that answers the XML-RPC and JSON-RPC
// endpoints used by the scanner.
type FakeOdoo struct {
	Version          map[string]any
	Users            map[string]map[string]FakeUser // database -> login -> user
	Models           map[string]*FakeModel
	Hooks            map[string]Hook
	Pages            map[string]string
	DBListDisabled   bool
	JSONListDisabled bool
	NotOdoo          bool
	StringFaultCodes bool
	// MasterPassword guards the database-manager methods.
	MasterPassword string
	// DBManagerDisabled mimics list_db = False: manager methods are refused
	// once the master password has been checked.
	DBManagerDisabled bool

	mu      sync.Mutex
	calls   []CallRecord
	auths   []string
	masters []string
	server  *httptest.Server
}

// NewFakeOdoo returns a fake with one "prod" database holding admin:admin.
func NewFakeOdoo() *FakeOdoo {
	return &FakeOdoo{
		Version: map[string]any{
			"server_version":      "14.0",
			"server_version_info": []any{14, 0, 0, "final", 0, ""},
			"server_serie":        "14.0",
			"protocol_version":    1,
		},
		Users: map[string]map[string]FakeUser{
			"prod": {"admin": {UID: 2, Password: "admin"}},
		},
		Models:         map[string]*FakeModel{},
		Hooks:          map[string]Hook{},
		Pages:          map[string]string{},
		MasterPassword: "admin",
	}
}

// Start starts the server over plain HTTP.
func (f *FakeOdoo) Start() *FakeOdoo {
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// StartTLS starts the server with a self-signed certificate.
func (f *FakeOdoo) StartTLS() *FakeOdoo {
	f.server = httptest.NewTLSServer(http.HandlerFunc(f.handle))
	return f
}

// Stop shuts the server down.
func (f *FakeOdoo) Stop() {
	if f.server != nil {
		f.server.Close()
	}
}

// URL is the base URL of the running server.
func (f *FakeOdoo) URL() string { return f.server.URL }

// Calls returns the object-endpoint calls seen so far.
func (f *FakeOdoo) Calls() []CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CallRecord(nil), f.calls...)
}

// Authentications returns "db/login:password" for every authenticate call.
func (f *FakeOdoo) Authentications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auths...)
}

// MasterAttempts returns "db:password" for every database-manager call that
// carried a master password.
func (f *FakeOdoo) MasterAttempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.masters...)
}

// Record returns a copy of a model record by id.
func (f *FakeOdoo) Record(model string, id int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Models[model]
	if !ok {
		return nil
	}
	for _, r := range m.Records {
		if r["id"] == id {
			out := map[string]any{}
			for k, v := range r {
				out[k] = v
			}
			return out
		}
	}
	return nil
}

func (f *FakeOdoo) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/xmlrpc/2/"):
		if f.NotOdoo {
			http.NotFound(w, r)
			return
		}
		f.handleXMLRPC(w, r, strings.TrimPrefix(r.URL.Path, "/xmlrpc/2/"))
	case r.URL.Path == "/web/database/list":
		f.handleJSONList(w)
	default:
		page, ok := f.Pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, page)
	}
}

func (f *FakeOdoo) handleJSONList(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if f.JSONListDisabled {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": 200, "message": "Odoo Server Error", "data": map[string]any{"message": "Access Denied"}},
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": f.databases()})
}

func (f *FakeOdoo) databases() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for db := range f.Users {
		out = append(out, db)
	}
	sort.Strings(out)
	return out
}

func (f *FakeOdoo) handleXMLRPC(w http.ResponseWriter, r *http.Request, service string) {
	call, err := DecodeMethodCall(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/xml")

	var result any
	switch service {
	case "common":
		result, err = f.common(call)
	case "db":
		result, err = f.db(call)
	case "object":
		result, err = f.object(call)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		var code any = 1
		if f.StringFaultCodes {
			code = "warning"
		}
		var fault *Fault
		if errors.As(err, &fault) {
			code = fault.Code
		}
		io.WriteString(w, EncodeFault(code, err.Error()))
		return
	}
	io.WriteString(w, EncodeResponse(result))
}

func (f *FakeOdoo) common(call MethodCall) (any, error) {
	switch call.Method {
	case "version":
		return f.Version, nil
	case "authenticate", "login":
		if len(call.Params) < 3 {
			return nil, fmt.Errorf("authenticate() missing arguments")
		}
		db, _ := call.Params[0].(string)
		login, _ := call.Params[1].(string)
		password, _ := call.Params[2].(string)

		f.mu.Lock()
		f.auths = append(f.auths, db+"/"+login+":"+password)
		users, ok := f.Users[db]
		f.mu.Unlock()

		if !ok {
			return nil, fmt.Errorf("Traceback (most recent call last):\n  ...\npsycopg2.OperationalError: connection to server at \"localhost\", port 5432 failed: FATAL:  database \"%s\" does not exist\n", db)
		}
		if u, ok := users[login]; ok && u.Password == password {
			return u.UID, nil
		}
		return false, nil
	}
	return nil, fmt.Errorf("method %q not found", call.Method)
}

func (f *FakeOdoo) db(call MethodCall) (any, error) {
	switch call.Method {
	case "list":
		if f.DBListDisabled {
			return nil, fmt.Errorf("odoo.exceptions.AccessDenied: Access Denied")
		}
		return f.databases(), nil
	case "server_version":
		return f.Version["server_version"], nil
	case "dump":
		if len(call.Params) < 3 {
			return nil, fmt.Errorf("exp_dump() missing arguments")
		}
		password, _ := call.Params[0].(string)
		db, _ := call.Params[1].(string)

		f.mu.Lock()
		f.masters = append(f.masters, db+":"+password)
		_, exists := f.Users[db]
		f.mu.Unlock()

		if password != f.MasterPassword {
			return nil, accessDenied("Access Denied")
		}
		if f.DBManagerDisabled {
			return nil, accessDenied("Database management functions blocked, admin disabled database listing")
		}
		if !exists {
			return nil, fmt.Errorf("Traceback (most recent call last):\n  ...\nException: Couldn't dump database: database \"%s\" does not exist\n", db)
		}
		return "UEsDBAoAAAAAAA==", nil
	}
	return nil, fmt.Errorf("method %q not found", call.Method)
}

func (f *FakeOdoo) object(call MethodCall) (any, error) {
	if call.Method != "execute_kw" || len(call.Params) < 6 {
		return nil, fmt.Errorf("unsupported object call %q", call.Method)
	}
	db, _ := call.Params[0].(string)
	uid, _ := call.Params[1].(int)
	password, _ := call.Params[2].(string)
	model, _ := call.Params[3].(string)
	method, _ := call.Params[4].(string)
	args, _ := call.Params[5].([]any)
	kwargs := map[string]any{}
	if len(call.Params) > 6 {
		if kw, ok := call.Params[6].(map[string]any); ok {
			kwargs = kw
		}
	}

	if !f.authorised(db, uid, password) {
		return nil, fmt.Errorf("odoo.exceptions.AccessDenied: Access Denied")
	}

	f.mu.Lock()
	f.calls = append(f.calls, CallRecord{Model: model, Method: method, Args: args})
	hook := f.Hooks[model+"."+method]
	f.mu.Unlock()

	if hook != nil {
		return hook(args, kwargs)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Models[model]
	if !ok {
		return nil, fmt.Errorf("Object %s doesn't exist", model)
	}

	switch method {
	case "check_access_rights":
		op, _ := firstArg(args).(string)
		for _, d := range m.Denied {
			if d == op {
				if raise, _ := kwargs["raise_exception"].(bool); raise {
					return nil, fmt.Errorf("odoo.exceptions.AccessError: not allowed to %s", op)
				}
				return false, nil
			}
		}
		return true, nil
	case "search":
		ids := []any{}
		for _, r := range limitRecords(m.Records, kwargs) {
			ids = append(ids, r["id"])
		}
		return ids, nil
	case "search_read":
		return project(limitRecords(m.Records, kwargs), fieldsOf(kwargs["fields"])), nil
	case "read":
		ids := toInts(firstArg(args))
		var fields []string
		if len(args) > 1 {
			fields = fieldsOf(args[1])
		}
		out := []map[string]any{}
		for _, r := range m.Records {
			for _, id := range ids {
				if r["id"] == id {
					out = append(out, project([]map[string]any{r}, fields)[0])
				}
			}
		}
		return out, nil
	case "write":
		ids := toInts(firstArg(args))
		vals, _ := secondArg(args).(map[string]any)
		for _, r := range m.Records {
			for _, id := range ids {
				if r["id"] == id {
					for k, v := range vals {
						r[k] = v
					}
				}
			}
		}
		return true, nil
	}
	return nil, fmt.Errorf("AttributeError: type object '%s' has no attribute '%s'", model, method)
}

func (f *FakeOdoo) authorised(db string, uid int, password string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.Users[db] {
		if u.UID == uid && u.Password == password {
			return true
		}
	}
	return false
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func secondArg(args []any) any {
	if len(args) < 2 {
		return nil
	}
	return args[1]
}

func toInts(v any) []int {
	switch x := v.(type) {
	case int:
		return []int{x}
	case []any:
		var out []int
		for _, item := range x {
			if i, ok := item.(int); ok {
				out = append(out, i)
			}
		}
		return out
	}
	return nil
}

func fieldsOf(v any) []string {
	list, _ := v.([]any)
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func limitRecords(records []map[string]any, kwargs map[string]any) []map[string]any {
	limit, _ := kwargs["limit"].(int)
	if limit > 0 && limit < len(records) {
		return records[:limit]
	}
	return records
}

func project(records []map[string]any, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		row := map[string]any{}
		if len(fields) == 0 {
			for k, v := range r {
				row[k] = v
			}
		} else {
			row["id"] = r["id"]
			for _, f := range fields {
				row[f] = r[f]
			}
		}
		out = append(out, row)
	}
	return out
}
