package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/model"
	"grocerygenius-api/internal/preferences"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

type prefsCommand struct {
	Show   prefsShowCommand   `command:"show" description:"Print the profile"`
	Zip    prefsZipCommand    `command:"zip" description:"Set the zip code"`
	Toggle prefsToggleCommand `command:"toggle" description:"Select or deselect a store"`
	Setup  prefsSetupCommand  `command:"setup" description:"Set zip code and stores and finish onboarding"`
	Reset  prefsResetCommand  `command:"reset" description:"Remove every preference"`
}

type prefsShowCommand struct{}

func (c *prefsShowCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	return showPreferences(os.Stdout, prefs)
}

func showPreferences(out io.Writer, prefs *preferences.Preferences) error {
	zip, err := prefs.ZipCode()
	if err != nil {
		return err
	}
	stores, err := prefs.SelectedStores()
	if err != nil {
		return err
	}
	done, err := prefs.OnboardingComplete()
	if err != nil {
		return err
	}
	items, err := prefs.WatchList()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "zip code:    %s\n", orDash(zip))
	fmt.Fprintf(out, "stores:      %s\n", orDash(strings.Join(stores, ", ")))
	fmt.Fprintf(out, "onboarded:   %t\n", done)
	fmt.Fprintf(out, "watch list:  %d item(s)\n", len(items))
	return nil
}

type prefsZipCommand struct {
	Args struct {
		Zip string `positional-arg-name:"zip"`
	} `positional-args:"yes" required:"yes"`
}

func (c *prefsZipCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	return prefs.SetZipCode(c.Args.Zip)
}

type prefsToggleCommand struct {
	Args struct {
		Slug string `positional-arg-name:"store"`
	} `positional-args:"yes" required:"yes"`
}

func (c *prefsToggleCommand) Execute([]string) error {
	slug := strings.ToLower(strings.TrimSpace(c.Args.Slug))
	if err := knownStore(slug); err != nil {
		return err
	}

	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	selected, err := prefs.ToggleStore(slug)
	if err != nil {
		return err
	}
	if selected {
		fmt.Printf("%s selected\n", slug)
	} else {
		fmt.Printf("%s deselected\n", slug)
	}
	return nil
}

type prefsSetupCommand struct {
	Zip    string   `short:"z" long:"zip" required:"yes" description:"Zip code"`
	Stores []string `short:"s" long:"store" description:"Store slug (repeatable)"`
}

func (c *prefsSetupCommand) Execute([]string) error {
	stores := make([]string, 0, len(c.Stores))
	for _, s := range c.Stores {
		slug := strings.ToLower(strings.TrimSpace(s))
		if err := knownStore(slug); err != nil {
			return err
		}
		stores = append(stores, slug)
	}

	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	return prefs.CompleteOnboarding(c.Zip, stores)
}

type prefsResetCommand struct{}

func (c *prefsResetCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	return prefs.Reset()
}

type watchCommand struct {
	List   watchListCommand   `command:"list" description:"Print the watch list"`
	Add    watchAddCommand    `command:"add" description:"Watch a keyword"`
	Remove watchRemoveCommand `command:"remove" description:"Stop watching an item"`
	Match  watchMatchCommand  `command:"match" description:"Find current deals for the watch list at the selected stores"`
}

type watchListCommand struct{}

func (c *watchListCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	items, err := prefs.WatchList()
	if err != nil {
		return err
	}
	printWatchList(os.Stdout, items)
	return nil
}

func printWatchList(out io.Writer, items []model.WatchListItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Watch list is empty")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEYWORD\tCATEGORY\tADDED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Keyword, deref(it.Category, "any"), humanize.Time(it.CreatedAt))
	}
	tw.Flush()
}

type watchAddCommand struct {
	Category string `short:"c" long:"category" description:"Only match deals in this category"`
	Args     struct {
		Keyword string `positional-arg-name:"keyword"`
	} `positional-args:"yes" required:"yes"`
}

func (c *watchAddCommand) Execute([]string) error {
	var category *string
	if c.Category != "" {
		name := strings.ToLower(strings.TrimSpace(c.Category))
		if !catalog.IsCategory(name) {
			return fmt.Errorf("unknown category %q (one of %s)", c.Category, strings.Join(catalog.Taxonomy, ", "))
		}
		category = &name
	}

	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	item, err := prefs.AddToWatchList(c.Args.Keyword, category)
	if err != nil {
		return err
	}
	fmt.Printf("Watching %q (%s)\n", item.Keyword, item.ID)
	return nil
}

type watchRemoveCommand struct {
	Args struct {
		ID string `positional-arg-name:"id"`
	} `positional-args:"yes" required:"yes"`
}

func (c *watchRemoveCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	removed, err := prefs.RemoveFromWatchList(c.Args.ID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no watch list item with id %q", c.Args.ID)
	}
	return nil
}

type watchMatchCommand struct{}

func (c *watchMatchCommand) Execute([]string) error {
	prefs, err := openPreferences()
	if err != nil {
		return err
	}
	items, err := prefs.WatchList()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Watch list is empty")
		return nil
	}
	stores, err := prefs.SelectedStores()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	matches, err := e.deals.MatchWatchList(ctx, model.WatchListMatchRequest{Stores: stores, Items: items})
	if err != nil {
		return err
	}
	printMatches(os.Stdout, matches)
	return nil
}

func printMatches(out io.Writer, matches []model.WatchListMatch) {
	for _, m := range matches {
		fmt.Fprintf(out, "\n%s (%s)\n", m.Item.Keyword, english.Plural(len(m.Deals), "deal", "deals"))
		if len(m.Deals) > 0 {
			printDeals(out, m.Deals)
		}
	}
}

func knownStore(slug string) error {
	cat, err := catalog.Load(os.Getenv("CATALOG_PATH"))
	if err != nil {
		return err
	}
	if _, ok := cat.Store(slug); !ok {
		return fmt.Errorf("unknown store %q", slug)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
