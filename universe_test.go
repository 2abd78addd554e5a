package queryopts

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewUniverseRejectsInvalidMembers(t *testing.T) {
	cases := []struct {
		name    string
		members []Member
		want    error
	}{
		{"missing id", []Member{{Key: "hiragana"}}, ErrMemberIDRequired},
		{"missing key", []Member{{ID: "01"}}, ErrMemberKeyRequired},
		{"separator in id", []Member{{ID: "a,b", Key: "a"}, {ID: "c", Key: "c"}}, ErrInvalidMemberID},
		{"duplicate id", []Member{{ID: "01", Key: "a"}, {ID: "01", Key: "b"}}, ErrDuplicateMemberID},
		{"duplicate key", []Member{{ID: "01", Key: "a"}, {ID: "02", Key: "a"}}, ErrDuplicateMemberKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewUniverse(tc.members...); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUniverseLookups(t *testing.T) {
	universe := kanaUniverse(t)

	if id, ok := universe.IDFor("katakana"); !ok || id != "02" {
		t.Fatalf("expected 02, got %q %v", id, ok)
	}
	if key, ok := universe.KeyFor("03"); !ok || key != "kanji" {
		t.Fatalf("expected kanji, got %q %v", key, ok)
	}
	if _, ok := universe.KeyFor("99"); ok {
		t.Fatalf("expected unknown id to miss")
	}
	if got := universe.Keys(); !reflect.DeepEqual(got, []string{"hiragana", "katakana", "kanji"}) {
		t.Fatalf("unexpected keys %v", got)
	}
	if got := universe.DefaultEnabledIDs(); !reflect.DeepEqual(got, []string{"01"}) {
		t.Fatalf("unexpected default ids %v", got)
	}
}

func TestUniverseValidateKeepsKnownIDsOnce(t *testing.T) {
	universe := kanaUniverse(t)
	got := universe.Validate([]string{"03", "999", "01", "03", ""})
	if !reflect.DeepEqual(got, []string{"03", "01"}) {
		t.Fatalf("unexpected validated ids %v", got)
	}
	if got := universe.Validate(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestUniverseProjectCoversEveryMember(t *testing.T) {
	universe := kanaUniverse(t)
	got := universe.Project([]string{"02", "404"})
	if !reflect.DeepEqual(got, selection("katakana")) {
		t.Fatalf("unexpected projection %v", got)
	}
	if got := universe.EmptySelection(); !reflect.DeepEqual(got, selection()) {
		t.Fatalf("unexpected empty selection %v", got)
	}
}

func TestUniverseEnabledIDsFollowDeclarationOrder(t *testing.T) {
	universe := kanaUniverse(t)
	got := universe.EnabledIDs(map[string]bool{"kanji": true, "hiragana": true, "romaji": true})
	if !reflect.DeepEqual(got, []string{"01", "03"}) {
		t.Fatalf("unexpected ids %v", got)
	}
}

func TestUniverseMembersAreCopies(t *testing.T) {
	universe := MustUniverse(Member{ID: "01", Key: "hiragana", Metadata: map[string]any{"rows": 10}})
	members := universe.Members()
	members[0].Metadata["rows"] = 99
	members[0].Key = "changed"

	member, ok := universe.Member("hiragana")
	if !ok || member.Metadata["rows"] != 10 {
		t.Fatalf("expected universe unaffected, got %+v", member)
	}
}

func TestNilUniverseIsEmpty(t *testing.T) {
	var universe *Universe
	if universe.Len() != 0 || len(universe.Keys()) != 0 || len(universe.Validate([]string{"01"})) != 0 {
		t.Fatalf("expected nil universe to behave as empty")
	}
}

func TestMustUniversePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustUniverse(Member{ID: "01"})
}
