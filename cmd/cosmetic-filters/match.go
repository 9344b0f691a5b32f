package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
	"github.com/bnema/cosmetic-filters/internal/fetcher"
	"github.com/bnema/cosmetic-filters/internal/hostname"
	"github.com/bnema/cosmetic-filters/internal/models"
	"github.com/bnema/cosmetic-filters/internal/parser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runCheck(cmd *cobra.Command, args []string) error {
	compiler := newCompiler(cmd)
	opts := parserOptions()

	rules := args
	if len(rules) == 0 {
		var err error
		if rules, err = readRules(cmd.InOrStdin()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, rule := range rules {
		f, err := compiler.Parse(rule, opts.Debug, opts.Permission)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s\n  error: %v\n", rule, err)
			continue
		}

		data, err := json.MarshalIndent(f, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n  %s\n  %s\n", rule, f, data)
		if g := f.HiddenGenericRule(); g != nil {
			fmt.Fprintf(out, "  hidden generic: %s\n", g)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed to compile", failed, len(rules))
	}
	return nil
}

// readRules reads one rule per non-empty line
func readRules(r io.Reader) ([]string, error) {
	var rules []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			rules = append(rules, line)
		}
	}
	return rules, scanner.Err()
}

// pageMatch lists the filters applying to one page
type pageMatch struct {
	Hide       []*cosmetic.Filter // plain hiding rules not cancelled by an exception
	Actions    []*cosmetic.Filter // style and removal rules
	Scriptlets []*cosmetic.Filter
	Exceptions []*cosmetic.Filter
	Unhidden   []*cosmetic.Filter // rules cancelled by an exception
}

// ruleKey identifies what a rule does, so an exception only cancels rules
// of its own kind
type ruleKey struct {
	script    bool
	selector  string
	hasAction bool
	action    cosmetic.Action
}

func keyOf(f *cosmetic.Filter) ruleKey {
	k := ruleKey{script: f.IsScriptInject(), selector: f.Selector}
	if f.Action != nil {
		k.hasAction = true
		k.action = *f.Action
	}
	return k
}

// matchPage returns the filters that apply to host, whose registrable
// domain is domain. A rule is cancelled by a matching exception with the
// same selector, action and scriptlet flag. `#@#+js()` cancels every
// scriptlet.
func matchPage(filters []*cosmetic.Filter, host, domain string) pageMatch {
	entities := hostname.EntityHashes(host, domain)
	hostnames := hostname.HostnameHashes(host, domain)

	var m pageMatch
	unhidden := make(map[ruleKey]bool)
	allScriptsUnhidden := false
	for _, f := range filters {
		if f.IsUnhide() && f.Matches(entities, hostnames) {
			m.Exceptions = append(m.Exceptions, f)
			unhidden[keyOf(f)] = true
			if f.IsScriptInject() && f.Selector == "" {
				allScriptsUnhidden = true
			}
		}
	}

	for _, f := range filters {
		if f.IsUnhide() || !f.Matches(entities, hostnames) {
			continue
		}
		switch {
		case unhidden[keyOf(f)]:
			m.Unhidden = append(m.Unhidden, f)
		case f.IsScriptInject() && allScriptsUnhidden:
			m.Unhidden = append(m.Unhidden, f)
		case f.IsScriptInject():
			m.Scriptlets = append(m.Scriptlets, f)
		case f.Action != nil:
			m.Actions = append(m.Actions, f)
		default:
			m.Hide = append(m.Hide, f)
		}
	}
	return m
}

func runMatch(cmd *cobra.Command, args []string) error {
	host, err := hostname.Normalize(args[0])
	if err != nil {
		return fmt.Errorf("invalid hostname %q: %w", args[0], err)
	}
	domain, err := hostname.RegistrableDomain(host)
	if err != nil {
		return fmt.Errorf("no registrable domain for %q: %w", host, err)
	}

	var lists []models.FilterList
	for _, path := range args[1:] {
		lists = append(lists, models.FilterList{Name: path, Path: path, Enabled: true})
	}
	if len(lists) == 0 {
		lists = cfg.EnabledLists()
	}
	if len(lists) == 0 {
		return fmt.Errorf("no list files given and no enabled filter lists found in config")
	}

	ctx := cmd.Context()
	f := fetcher.New(cfg.HTTP, logger.Named("fetcher"))
	p := parser.New(newCompiler(cmd), parserOptions(), logger.Named("parser"))

	var filters []*cosmetic.Filter
	for _, list := range lists {
		data, err := f.Load(ctx, list)
		if err != nil {
			return fmt.Errorf("load %s: %w", list.Name, err)
		}
		compiled, err := p.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("parse %s: %w", list.Name, err)
		}
		filters = append(filters, compiled...)
	}
	logger.Debug("compiled filters for matching",
		zap.Int("filters", len(filters)),
		zap.Int("lists", len(lists)))

	m := matchPage(filters, host, domain)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Filters for %s (domain %s), %d compiled:\n", host, domain, len(filters))
	printGroup(out, "hide", m.Hide)
	printGroup(out, "actions", m.Actions)
	printGroup(out, "scriptlets", m.Scriptlets)
	printGroup(out, "exceptions", m.Exceptions)
	printGroup(out, "unhidden", m.Unhidden)
	return nil
}

func printGroup(w io.Writer, name string, filters []*cosmetic.Filter) {
	fmt.Fprintf(w, "\n  %s (%d)\n", name, len(filters))
	for _, f := range filters {
		if f.RawLine != nil {
			fmt.Fprintf(w, "    %s    <- %s\n", f, *f.RawLine)
			continue
		}
		fmt.Fprintf(w, "    %s\n", f)
	}
}
