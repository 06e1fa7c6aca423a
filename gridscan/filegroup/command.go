package filegroup

import (
	"fmt"
	"strings"

	"github.com/batchatco/go-gridscan/gridscan/key"
	pkgerrors "github.com/pkg/errors"
)

// CmdKeyrings pairs what to read in a file with where to put it in memory.
// Both keyrings use the dimension names of the dataset.
type CmdKeyrings struct {
	Infile *key.Keyring
	Memory *key.Keyring
}

func (p CmdKeyrings) Copy() CmdKeyrings {
	return CmdKeyrings{Infile: p.Infile.Copy(), Memory: p.Memory.Copy()}
}

func (p CmdKeyrings) String() string {
	return fmt.Sprintf("in %s -> memory %s", p.Infile, p.Memory)
}

// Command lists the reads to do in one file.
type Command struct {
	Filename string
	Pairs    []CmdKeyrings
}

func (c *Command) Append(infile, memory *key.Keyring) {
	c.Pairs = append(c.Pairs, CmdKeyrings{Infile: infile, Memory: memory})
}

func (c *Command) String() string {
	var b strings.Builder
	b.WriteString(c.Filename)
	for _, p := range c.Pairs {
		b.WriteString("\n  ")
		b.WriteString(p.String())
	}
	return b.String()
}

// sameBut reports whether two pairs have equal keys in every dimension but
// dim.
func sameBut(a, b CmdKeyrings, dim string) bool {
	return equalBut(a.Infile, b.Infile, dim) && equalBut(a.Memory, b.Memory, dim)
}

func equalBut(a, b *key.Keyring, dim string) bool {
	a, b = a.Copy(), b.Copy()
	a.Pop(dim)
	b.Pop(dim)
	return a.Equal(b)
}

// mergeable reports whether pairs can be read at once along dim: each
// must read one index of dim in the file.
func mergeable(p CmdKeyrings, dim string) bool {
	k, has := p.Infile.Get(dim)
	return has && k.IsInt()
}

// MergeCommands merges, in each command, the pairs that differ only by the
// index of dim, so that a single read covers them.
func MergeCommands(cmds []*Command, dim string) error {
	for _, cmd := range cmds {
		merged, err := mergePairs(cmd.Pairs, dim)
		if err != nil {
			return pkgerrors.Wrapf(err, "merging %s in %s", dim, cmd.Filename)
		}
		cmd.Pairs = merged
	}
	return nil
}

func mergePairs(pairs []CmdKeyrings, dim string) ([]CmdKeyrings, error) {
	var out []CmdKeyrings
	done := make([]bool, len(pairs))
	for i, p := range pairs {
		if done[i] {
			continue
		}
		done[i] = true
		if !mergeable(p, dim) {
			out = append(out, p)
			continue
		}
		group := []CmdKeyrings{p}
		for j := i + 1; j < len(pairs); j++ {
			if !done[j] && mergeable(pairs[j], dim) && sameBut(p, pairs[j], dim) {
				group = append(group, pairs[j])
				done[j] = true
			}
		}
		if len(group) == 1 {
			out = append(out, p)
			continue
		}
		m, err := mergeKeys(group, dim)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// mergeKeys joins the keys of dim of every pair into lists, simplified to
// slices when they form runs.
func mergeKeys(group []CmdKeyrings, dim string) (CmdKeyrings, error) {
	m := group[0].Copy()
	var in, mem []int
	for _, p := range group {
		k, _ := p.Infile.Get(dim)
		in = append(in, k.IntValue())
		mk, _ := p.Memory.Get(dim)
		l, err := mk.AsList()
		if err != nil {
			return m, err
		}
		mem = append(mem, l...)
	}
	if len(in) != len(mem) {
		return m, pkgerrors.Errorf("%d in-file indices for %d memory indices", len(in), len(mem))
	}
	ik, mk := key.List(in...), key.List(mem...)
	ik.Simplify()
	mk.Simplify()
	m.Infile.SetKey(dim, ik)
	m.Memory.SetKey(dim, mk)
	return m, nil
}

// SeparateVariables splits every pair so that it reads a single variable.
// The variable keys of pairs hold indices into the names of vcs; they
// become the in-file name and the dataset name of the variable.
func SeparateVariables(cmds []*Command, vcs *CoordScan) error {
	for _, cmd := range cmds {
		var out []CmdKeyrings
		for _, p := range cmd.Pairs {
			k, has := p.Infile.Get(key.VarDim)
			if !has {
				out = append(out, p)
				continue
			}
			locals, err := key.Apply(k, identity(vcs.Size()))
			if err != nil {
				return pkgerrors.Wrapf(err, "variables of %s", cmd.Filename)
			}
			for _, l := range locals {
				q := p.Copy()
				q.Infile.SetKey(key.VarDim, key.Name(vcs.inNames[l]))
				q.Memory.SetKey(key.VarDim, key.Name(vcs.names[l]))
				out = append(out, q)
			}
		}
		cmd.Pairs = out
	}
	return nil
}

// SortKeyrings orders the keyrings of every pair along dims.
func SortKeyrings(cmds []*Command, dims []string) error {
	for _, cmd := range cmds {
		for _, p := range cmd.Pairs {
			if err := p.Infile.SortBy(dims); err != nil {
				return err
			}
			if err := p.Memory.SortBy(dims); err != nil {
				return err
			}
		}
	}
	return nil
}
