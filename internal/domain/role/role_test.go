package role

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: Admin},
		{in: "applicant", want: Applicant},
		{in: "Admin", wantErr: true},
		{in: "readonly", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRole) {
					t.Fatalf("Parse(%q): ожидали ErrInvalidRole, получили %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) ошибка: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, хотели %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLabelsAndPredicates(t *testing.T) {
	tests := []struct {
		name        string
		role        Role
		label       string
		isAdmin     bool
		isApplicant bool
	}{
		{name: "admin", role: Admin, label: "Administrador", isAdmin: true},
		{name: "applicant", role: Applicant, label: "Candidato", isApplicant: true},
		{name: "нулевое значение", role: 0, label: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Label(); got != tt.label {
				t.Errorf("Label() = %q, хотели %q", got, tt.label)
			}
			if got := tt.role.IsAdmin(); got != tt.isAdmin {
				t.Errorf("IsAdmin() = %v, хотели %v", got, tt.isAdmin)
			}
			if got := tt.role.IsApplicant(); got != tt.isApplicant {
				t.Errorf("IsApplicant() = %v, хотели %v", got, tt.isApplicant)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{Role: Applicant})
	if err != nil {
		t.Fatalf("Marshal ошибка: %v", err)
	}
	if string(data) != `{"role":"applicant"}` {
		t.Errorf("Marshal = %s", data)
	}

	var v struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal([]byte(`{"role":"admin"}`), &v); err != nil {
		t.Fatalf("Unmarshal ошибка: %v", err)
	}
	if v.Role != Admin {
		t.Errorf("Unmarshal: роль %v, хотели Admin", v.Role)
	}

	// Значение вне набора не десериализуется
	if err := json.Unmarshal([]byte(`{"role":"superadmin"}`), &v); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("ожидали ErrInvalidRole, получили %v", err)
	}

	// Нулевое значение не сериализуется
	if _, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{}); err == nil {
		t.Error("ожидали ошибку сериализации нулевой роли")
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != 2 || all[0] != Admin || all[1] != Applicant {
		t.Errorf("All() = %v", all)
	}
}
