package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MainRepo is a manifest-level image name together with the registry it
// belongs to. Equal names under different kinds are distinct keys.
type MainRepo struct {
	Kind RegistryKind
	Name string
}

func (m MainRepo) String() string {
	return m.Kind.String() + "(" + m.Name + ")"
}

// RepoMap maps each main repo to the per-architecture tags that form its
// multi-arch manifest. Keys and values keep first-seen order.
//
// RepoMap is not safe for concurrent use. The release pipeline only mutates it
// from the goroutine that iterates descriptors.
type RepoMap struct {
	keys []MainRepo
	tags map[MainRepo][]string
}

// NewRepoMap returns an empty map.
func NewRepoMap() *RepoMap {
	return &RepoMap{tags: make(map[MainRepo][]string)}
}

// RecordTag appends tag to the collection of key, creating it on first use.
func (m *RepoMap) RecordTag(key MainRepo, tag string) {
	if m.tags == nil {
		m.tags = make(map[MainRepo][]string)
	}
	if _, ok := m.tags[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.tags[key] = append(m.tags[key], tag)
}

// Keys returns the main repos in first-seen order.
func (m *RepoMap) Keys() []MainRepo {
	return append([]MainRepo(nil), m.keys...)
}

// Tags returns the tags recorded for key.
func (m *RepoMap) Tags(key MainRepo) []string {
	return append([]string(nil), m.tags[key]...)
}

// Len returns the number of main repos.
func (m *RepoMap) Len() int {
	return len(m.keys)
}

type repoMapEntry struct {
	Kind RegistryKind `yaml:"kind"`
	Repo string       `yaml:"repo"`
	Tags []string     `yaml:"tags"`
}

// MarshalYAML encodes the map as an ordered list of entries.
func (m *RepoMap) MarshalYAML() (any, error) {
	entries := make([]repoMapEntry, 0, len(m.keys))
	for _, k := range m.keys {
		entries = append(entries, repoMapEntry{Kind: k.Kind, Repo: k.Name, Tags: m.tags[k]})
	}
	return entries, nil
}

// UnmarshalYAML decodes the list written by MarshalYAML.
func (m *RepoMap) UnmarshalYAML(node *yaml.Node) error {
	var entries []repoMapEntry
	if err := node.Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode repo map: %w", err)
	}
	*m = RepoMap{tags: make(map[MainRepo][]string, len(entries))}
	for _, e := range entries {
		key := MainRepo{Kind: e.Kind, Name: e.Repo}
		if len(e.Tags) == 0 {
			return fmt.Errorf("repo map entry %s has no tags", key)
		}
		for _, t := range e.Tags {
			m.RecordTag(key, t)
		}
	}
	return nil
}
