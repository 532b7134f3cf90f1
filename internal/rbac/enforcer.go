package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// The role tier is flat and fixed, so the model and policy live in code
// rather than a database. Fine-grained owner/department decisions stay
// in the leave policy; this gate only answers "may this role touch this
// resource at all".
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

var policies = [][]string{
	{"ADMIN", "leave", "*"},
	{"ADMIN", "employee", "*"},
	{"MANAGER", "leave", "create"},
	{"MANAGER", "leave", "read"},
	{"MANAGER", "leave", "approve"},
	{"MANAGER", "leave", "cancel"},
	{"MANAGER", "leave", "export"},
	{"MANAGER", "employee", "read"},
	{"EMPLOYEE", "leave", "create"},
	{"EMPLOYEE", "leave", "read"},
	{"EMPLOYEE", "leave", "cancel"},
	{"EMPLOYEE", "employee", "read"},
}

//go:generate mockgen -source=enforcer.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(role, resource, action string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
}

func NewService() (Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}

	return &service{enforcer: enforcer}, nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	return s.enforcer.Enforce(role, resource, action)
}
