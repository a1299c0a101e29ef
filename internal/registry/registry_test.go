package registry

import (
	"errors"
	"testing"
)

func TestRegister_Duplicate(t *testing.T) {
	r := New()
	if err := r.Register(&ToolDescriptor{Name: "echo", Classification: ClassLow}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(&ToolDescriptor{Name: "echo", Classification: ClassLow})
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if dup.Name != "echo" {
		t.Fatalf("expected name echo, got %s", dup.Name)
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := New()
	_, err := r.Lookup("does_not_exist")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
}

func TestRegister_DefaultsToStrictestTier(t *testing.T) {
	r := New()
	if err := r.Register(&ToolDescriptor{Name: "mystery"}); err != nil {
		t.Fatal(err)
	}
	d, err := r.Lookup("mystery")
	if err != nil {
		t.Fatal(err)
	}
	if d.Classification != ClassCritical {
		t.Fatalf("expected critical for unclassified tool, got %s", d.Classification)
	}

	// Bogus tier strings default up too.
	if err := r.Register(&ToolDescriptor{Name: "bogus", Classification: "extreme"}); err != nil {
		t.Fatal(err)
	}
	d, _ = r.Lookup("bogus")
	if d.Classification != ClassCritical {
		t.Fatalf("expected critical for bogus tier, got %s", d.Classification)
	}
}

func TestList_SortedAndRestartable(t *testing.T) {
	r := New()
	for _, name := range []string{"zebra", "alpha", "mango"} {
		if err := r.Register(&ToolDescriptor{Name: name, Classification: ClassLow}); err != nil {
			t.Fatal(err)
		}
	}

	seq := r.List(nil)

	var first []string
	for d := range seq {
		first = append(first, d.Name)
	}
	want := []string{"alpha", "mango", "zebra"}
	for i, name := range want {
		if first[i] != name {
			t.Fatalf("expected %v, got %v", want, first)
		}
	}

	// Ranging the same sequence again starts over.
	count := 0
	for range seq {
		count++
	}
	if count != 3 {
		t.Fatalf("expected restartable sequence of 3, got %d", count)
	}
}

func TestList_Filter(t *testing.T) {
	r := New()
	must := func(d *ToolDescriptor) {
		t.Helper()
		if err := r.Register(d); err != nil {
			t.Fatal(err)
		}
	}
	must(&ToolDescriptor{Name: "gh_list_repos", Category: "github", Classification: ClassLow})
	must(&ToolDescriptor{Name: "gh_merge_pr", Category: "github", Classification: ClassHigh, SideEffect: true})
	must(&ToolDescriptor{Name: "docker_ps", Category: "docker", Classification: ClassLow})

	var got []string
	for d := range r.List(&Filter{Category: "github"}) {
		got = append(got, d.Name)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 github tools, got %v", got)
	}

	got = got[:0]
	for d := range r.List(&Filter{Classification: ClassHigh}) {
		got = append(got, d.Name)
	}
	if len(got) != 1 || got[0] != "gh_merge_pr" {
		t.Fatalf("expected gh_merge_pr, got %v", got)
	}
}

func TestByCategory(t *testing.T) {
	r := New()
	for _, d := range []*ToolDescriptor{
		{Name: "a", Category: "github"},
		{Name: "b", Category: "github"},
		{Name: "c", Category: "docker"},
	} {
		if err := r.Register(d); err != nil {
			t.Fatal(err)
		}
	}
	counts := r.ByCategory()
	if counts["github"] != 2 || counts["docker"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestResolveArguments_MissingRequired(t *testing.T) {
	r := New()
	if err := r.Register(&ToolDescriptor{
		Name: "deploy",
		Parameters: []Parameter{
			{Name: "service", Type: "string", Required: true},
			{Name: "region", Type: "string", Required: true},
			{Name: "dry", Type: "boolean", Default: false},
		},
	}); err != nil {
		t.Fatal(err)
	}
	d, _ := r.Lookup("deploy")

	_, err := d.ResolveArguments(map[string]any{})
	var missing *MissingArgumentError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingArgumentError, got %v", err)
	}
	if len(missing.Fields) != 2 || missing.Fields[0] != "region" || missing.Fields[1] != "service" {
		t.Fatalf("expected all missing fields named, got %v", missing.Fields)
	}
}

func TestResolveArguments_AppliesDefaults(t *testing.T) {
	r := New()
	if err := r.Register(&ToolDescriptor{
		Name: "search",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Required: true},
			{Name: "limit", Type: "integer", Default: 10},
		},
	}); err != nil {
		t.Fatal(err)
	}
	d, _ := r.Lookup("search")

	args := map[string]any{"query": "hello"}
	resolved, err := d.ResolveArguments(args)
	if err != nil {
		t.Fatal(err)
	}
	if resolved["limit"] != 10 {
		t.Fatalf("expected default limit 10, got %v", resolved["limit"])
	}
	if _, ok := args["limit"]; ok {
		t.Fatal("input map must not be mutated")
	}
}

func TestResolveArguments_TypeMismatch(t *testing.T) {
	r := New()
	if err := r.Register(&ToolDescriptor{
		Name: "scale",
		Parameters: []Parameter{
			{Name: "replicas", Type: "integer", Required: true},
		},
	}); err != nil {
		t.Fatal(err)
	}
	d, _ := r.Lookup("scale")

	_, err := d.ResolveArguments(map[string]any{"replicas": "three"})
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentError, got %v", err)
	}

	if _, err := d.ResolveArguments(map[string]any{"replicas": 3}); err != nil {
		t.Fatalf("integer argument rejected: %v", err)
	}
}
