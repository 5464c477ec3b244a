package session

// ProfileState is the profile-setup step a session is in. Exactly one
// of the three concrete states holds at any time, and only
// ProfileAwaitingGender carries the age collected in the previous step,
// so an age can never outlive the flow that gathered it.
type ProfileState interface {
	profileState()
}

// ProfileNone means no profile setup is in progress.
type ProfileNone struct{}

// ProfileAwaitingAge means the user was asked for their age.
type ProfileAwaitingAge struct{}

// ProfileAwaitingGender means a valid age was collected and the user
// was asked for their gender.
type ProfileAwaitingGender struct {
	Age int
}

func (ProfileNone) profileState()           {}
func (ProfileAwaitingAge) profileState()    {}
func (ProfileAwaitingGender) profileState() {}

// SettingUp reports whether s is mid profile setup.
func SettingUp(s ProfileState) bool {
	if s == nil {
		return false
	}
	_, none := s.(ProfileNone)
	return !none
}
