package views

import (
	"context"
	"sync"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// ProfileView shows the user's profile and edits it. Edits live in a
// draft until Save succeeds; a failed save keeps the draft and edit mode.
type ProfileView struct {
	base
	profiles *services.ProfileService

	mu      sync.Mutex
	editing bool
	draft   core.ProfileUpdate

	Profile *services.Fetcher[*core.Profile]
	save    *services.Mutation[core.ProfileUpdate, *core.Profile]
}

func NewProfileView(d Deps) *ProfileView {
	v := &ProfileView{
		base:     newBase(d),
		profiles: d.Profiles,
		Profile:  services.NewFetcher[*core.Profile](),
	}
	v.save = services.NewMutation(v.profiles.Update, v.saved)
	return v
}

func (v *ProfileView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	_, err := v.Profile.Load(ctx, v.profiles.Me)
	return settled(err)
}

func (v *ProfileView) Close() {
	v.Profile.Cancel()
	v.close()
}

// BeginEdit seeds the draft from the loaded profile.
func (v *ProfileView) BeginEdit() error {
	profile, ok := v.Profile.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = true
	v.draft = core.EditableFrom(profile)
	return nil
}

func (v *ProfileView) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editing = false
	v.draft = core.ProfileUpdate{}
	v.save.Reset()
}

func (v *ProfileView) Editing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.editing
}

func (v *ProfileView) Draft() core.ProfileUpdate {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

func (v *ProfileView) SetDraft(update core.ProfileUpdate) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.editing {
		return core.ErrNotEditing
	}
	v.draft = update
	return nil
}

// Save sends the draft. On success the profile becomes the server's copy
// and edit mode ends.
func (v *ProfileView) Save(ctx context.Context) (*core.Profile, error) {
	if _, ok := v.Profile.Data(); !ok {
		return nil, core.ErrNotLoaded
	}
	v.mu.Lock()
	editing, draft := v.editing, v.draft
	v.mu.Unlock()
	if !editing {
		return nil, core.ErrNotEditing
	}
	return v.save.Submit(ctx, draft)
}

func (v *ProfileView) SaveState() (services.MutationState, error) { return v.save.State() }

func (v *ProfileView) saved(_ core.ProfileUpdate, profile *core.Profile) {
	v.Profile.Update(func(*core.Profile) *core.Profile { return profile })
	v.mu.Lock()
	v.editing = false
	v.draft = core.ProfileUpdate{}
	v.mu.Unlock()
}
