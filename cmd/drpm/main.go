package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/midbel/cli"
	"github.com/midbel/drpm"
	"github.com/midbel/drpm/rpm"
)

var commands = []*cli.Command{
	{
		Usage:   "info <delta,...>",
		Short:   "show summary information on delta files",
		Alias:   []string{"show"},
		Run:     runInfo,
		Default: true,
	},
	{
		Usage: "dump <delta,...>",
		Short: "dump every field of delta files, blobs included",
		Run:   runDump,
	},
	{
		Usage: "list <package,...>",
		Short: "list content of full rpm packages",
		Alias: []string{"content"},
		Run:   runList,
	},
}

func main() {
	cli.RunAndExit(commands, func() {})
}

func runInfo(cmd *cli.Command, args []string) error {
	if err := cmd.Flag.Parse(args); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 12, 2, 2, ' ', 0)
	defer w.Flush()
	for _, file := range cmd.Flag.Args() {
		d, err := drpm.Open(file)
		if err != nil {
			return err
		}
		v, err := d.View()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\tv%d\t%s\t%s\t%s\t%s\n", v.Kind, v.Version, v.Comp, v.SrcNEVR, v.TgtNEVR, v.TgtMD5)
	}
	return nil
}

func runDump(cmd *cli.Command, args []string) error {
	if err := cmd.Flag.Parse(args); err != nil {
		return err
	}
	for i, file := range cmd.Flag.Args() {
		if i > 0 {
			fmt.Fprintln(os.Stdout)
		}
		if err := drpm.Dump(file, os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func runList(cmd *cli.Command, args []string) error {
	if err := cmd.Flag.Parse(args); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 12, 2, 2, ' ', 0)
	defer w.Flush()
	for _, file := range cmd.Flag.Args() {
		p, err := rpm.Open(file)
		if err != nil {
			return err
		}
		rs, err := p.Resources()
		if err != nil {
			return err
		}
		for _, r := range rs {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", os.FileMode(r.Perm), r.Size, r.ModTime.Format("Jan 02 15:04"), r.Name)
		}
	}
	return nil
}
