package domain

import "sort"

type User struct {
	Name string `json:"name"`
}

type UserList map[PeerID]User

// SortedIDs returns the identities in ascending order.
func (u UserList) SortedIDs() []PeerID {
	ids := make([]PeerID, 0, len(u))
	for id := range u {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (u UserList) Clone() UserList {
	out := make(UserList, len(u))
	for id, user := range u {
		out[id] = user
	}
	return out
}
