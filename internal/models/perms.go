package models

import "fmt"

type Perm string
type Perms map[Perm]struct{}

func NewPerms(perms ...Perm) Perms {
	ps := Perms{}
	for _, p := range perms {
		ps[p] = struct{}{}
	}
	return ps
}

const (
	PermViewSpace     Perm = "view_space"
	PermCreatePost    Perm = "create_post"
	PermCreateComment Perm = "create_comment"
	PermReact         Perm = "react"
	PermManageMembers Perm = "manage_members"
	PermManageSpace   Perm = "manage_space"
)

// PermsContent are the content-mutating actions gated on an active
// membership.
var PermsContent = NewPerms(
	PermCreatePost,
	PermCreateComment,
	PermReact,
)

var PermsMember = NewPerms(
	PermViewSpace,
	PermCreatePost,
	PermCreateComment,
	PermReact,
)

var PermsManager = NewPerms(
	PermViewSpace,
	PermCreatePost,
	PermCreateComment,
	PermReact,
	PermManageMembers,
)

var PermsAdmin = NewPerms(
	PermViewSpace,
	PermCreatePost,
	PermCreateComment,
	PermReact,
	PermManageMembers,
	PermManageSpace,
)

type ErrMissingPerms struct {
	Perms []Perm
}

func (mp ErrMissingPerms) Error() string {
	return fmt.Sprintf("missing permission %s", mp.Perms)
}

func (ps Perms) Require(reqPerms ...Perm) error {
	for _, p := range reqPerms {
		if _, ok := ps[p]; !ok {
			return ErrMissingPerms{[]Perm{p}}
		}
	}
	return nil
}

func (ps Perms) Check(reqPerms ...Perm) bool {
	return ps.Require(reqPerms...) == nil
}

func (ps Perms) List() []Perm {
	perms := []Perm{}
	for k := range ps {
		perms = append(perms, k)
	}
	return perms
}

func (ps Perms) Union(ps2 Perms) Perms {
	res := Perms{}
	for p := range ps {
		res[p] = struct{}{}
	}
	for p := range ps2 {
		res[p] = struct{}{}
	}
	return res
}
