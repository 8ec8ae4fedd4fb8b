package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/tag"
)

type TagsCommand struct {
	File string `long:"file" description:"Tag table file (defaults to the config's, then the built-in table)"`

	Args struct {
		ID string `positional-arg-name:"id" description:"Resolve one tag identifier"`
	} `positional-args:"yes"`
}

func (c *TagsCommand) Execute(args []string) error {
	path := c.File
	if path == "" {
		if cfg, err := robot.LoadConfigFrom(opts.Config); err == nil {
			path = cfg.TagFile
		}
	}

	tags := tag.DefaultTable()
	if path != "" {
		var err error
		if tags, err = tag.LoadTable(path); err != nil {
			return err
		}
	}

	if c.Args.ID != "" {
		coord := tags.Lookup(c.Args.ID)
		fmt.Printf("%s -> %s\n", c.Args.ID, coord)
		if coord.IsUnknown() {
			os.Exit(1)
		}
		return nil
	}

	rows := make([][]string, 0, tags.Len())
	for _, r := range tags.Records() {
		rows = append(rows, []string{r.ID, fmt.Sprintf("%d", r.X), fmt.Sprintf("%d", r.Y)})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "X", "Y").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return idStyle
			}
			return cellStyle
		})
	fmt.Println(t.Render())
	return nil
}
