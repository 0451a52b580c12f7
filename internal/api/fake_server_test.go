package api

import (
	"context"
	"io"
	"sync"

	"github.com/tamuctf/CTFd/internal/ctfd"
	"github.com/tamuctf/CTFd/internal/domain"
)

// fakeServer stands in for the CTF server client.
type fakeServer struct {
	mu         sync.Mutex
	challenges []domain.Challenge
	panels     map[int]*ctfd.Panels
	errs       map[string]error
	calls      []string

	discovery [][]string
	tags      [][]string
	hints     [][]string
	uploads   map[string]string
	updated   []domain.Challenge
	keys      map[int]domain.Key
	replaced  [][2][]string
}

func newFakeServer(challenges ...domain.Challenge) *fakeServer {
	return &fakeServer{
		challenges: challenges,
		panels:     make(map[int]*ctfd.Panels),
		errs:       make(map[string]error),
		uploads:    make(map[string]string),
		keys:       make(map[int]domain.Key),
	}
}

func (f *fakeServer) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeServer) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeServer) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeServer) Challenges(context.Context) ([]domain.Challenge, error) {
	if err := f.call("list_challenges"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Challenge(nil), f.challenges...), nil
}

func (f *fakeServer) UpdateChallenge(_ context.Context, ch domain.Challenge) error {
	if err := f.call("update_challenge"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, ch)
	return nil
}

func (f *fakeServer) DeleteChallenge(context.Context, int) error {
	return f.call("delete_challenge")
}

func (f *fakeServer) SubmitKey(_ context.Context, _ int, key string) (domain.KeyResult, error) {
	if err := f.call("submit_key"); err != nil {
		return domain.KeyResult{}, err
	}
	if key == "flag{ok}" {
		return domain.KeyResult{Status: "1", Message: "Correct"}, nil
	}
	return domain.KeyResult{Status: "0", Message: "Incorrect"}, nil
}

func (f *fakeServer) LoadPanels(_ context.Context, chalID int) (*ctfd.Panels, error) {
	if err := f.call("load_panels"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.panels[chalID]; ok {
		cp := *p
		return &cp, nil
	}
	return &ctfd.Panels{}, nil
}

func (f *fakeServer) KeyTypes(context.Context) ([]domain.KeyType, error) {
	if err := f.call("key_types"); err != nil {
		return nil, err
	}
	return []domain.KeyType{{ID: "0", Name: "static"}, {ID: "1", Name: "regex"}}, nil
}

func (f *fakeServer) CreateKey(context.Context, int, string, string) error {
	return f.call("create_key")
}

func (f *fakeServer) UpdateKey(context.Context, int, int, string, string) error {
	return f.call("update_key")
}

func (f *fakeServer) Key(_ context.Context, keyID int) (domain.Key, error) {
	if err := f.call("get_key"); err != nil {
		return domain.Key{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[keyID]
	if !ok {
		return domain.Key{}, &ctfd.OutcomeError{Op: "get_key", Outcome: ctfd.NotFound, Status: 404}
	}
	return k, nil
}

func (f *fakeServer) ReplaceKeys(_ context.Context, _ int, flags, types []string) error {
	if err := f.call("replace_keys"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, [2][]string{flags, types})
	return nil
}

func (f *fakeServer) DeleteKey(context.Context, int) error {
	return f.call("delete_key")
}

func (f *fakeServer) UpdateTags(_ context.Context, _ int, tags []string) error {
	if err := f.call("update_tags"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tags)
	return nil
}

func (f *fakeServer) DeleteTag(context.Context, int) error {
	return f.call("delete_tag")
}

func (f *fakeServer) UpdateHints(_ context.Context, _ int, hints []string) error {
	if err := f.call("update_hints"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hints = append(f.hints, hints)
	return nil
}

func (f *fakeServer) DeleteHint(context.Context, int) error {
	return f.call("delete_hint")
}

func (f *fakeServer) UpdateDiscoveryList(_ context.Context, _ int, rules []string) error {
	if err := f.call("update_discovery"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovery = append(f.discovery, rules)
	return nil
}

func (f *fakeServer) DeleteDiscovery(context.Context, int) error {
	return f.call("delete_discovery")
}

func (f *fakeServer) UploadFiles(_ context.Context, _ int, uploads []ctfd.Upload) error {
	if err := f.call("upload_files"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range uploads {
		data, err := io.ReadAll(u.Body)
		if err != nil {
			return err
		}
		f.uploads[u.Name] = string(data)
	}
	return nil
}

func (f *fakeServer) DeleteFile(context.Context, int, int) error {
	return f.call("delete_file")
}

func (f *fakeServer) FileURL(file domain.File) string {
	return "http://ctf.test/files/" + file.File
}
