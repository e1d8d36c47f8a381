package role

type Role string

const (
	Familiar  Role = "familiar"
	Caregiver Role = "caregiver"
	Elder     Role = "elder"
)

const (
	ResourcePatient      = "patient"
	ResourceMedication   = "medication"
	ResourceHealthRecord = "healthRecord"
	ResourceAppointment  = "appointment"
	ResourceGame         = "game"
	ResourceLookup       = "lookup"
)

const (
	ActionCreate = "create"
	ActionView   = "view"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAssign = "assign"
	ActionPlay   = "play"
	ActionExport = "export"
)

type Privilege struct {
	Resource string   `json:"resource" bson:"resource"`
	Actions  []string `json:"actions" bson:"actions"`
}

var accountPrivileges = []Privilege{
	{Resource: ResourcePatient, Actions: []string{ActionCreate, ActionView, ActionUpdate}},
	{Resource: ResourceMedication, Actions: []string{ActionCreate, ActionView, ActionUpdate, ActionDelete}},
	{Resource: ResourceHealthRecord, Actions: []string{ActionCreate, ActionView, ActionUpdate, ActionDelete, ActionExport}},
	{Resource: ResourceAppointment, Actions: []string{ActionCreate, ActionView, ActionUpdate, ActionDelete}},
	{Resource: ResourceGame, Actions: []string{ActionAssign}},
	{Resource: ResourceLookup, Actions: []string{ActionView}},
}

var elderPrivileges = []Privilege{
	{Resource: ResourcePatient, Actions: []string{ActionView}},
	{Resource: ResourceMedication, Actions: []string{ActionView}},
	{Resource: ResourceAppointment, Actions: []string{ActionView}},
	{Resource: ResourceGame, Actions: []string{ActionPlay}},
}

// Familiar members and caregivers share one login flow and one privilege set.
var privileges = map[Role][]Privilege{
	Familiar:  accountPrivileges,
	Caregiver: accountPrivileges,
	Elder:     elderPrivileges,
}

func (r Role) Valid() bool {
	_, ok := privileges[r]
	return ok
}

// IsAccount reports whether the role is backed by a provider credential.
func (r Role) IsAccount() bool {
	return r == Familiar || r == Caregiver
}

func Privileges(r Role) []Privilege {
	return privileges[r]
}

/*
* Look up the privileges of the role
* Find the resource and check the action is listed
 */
func Can(r Role, resource, action string) bool {
	for _, p := range privileges[r] {
		if p.Resource != resource {
			continue
		}
		for _, a := range p.Actions {
			if a == action {
				return true
			}
		}
	}
	return false
}
