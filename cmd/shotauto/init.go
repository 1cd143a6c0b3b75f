package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sudorandom/screenshot-automator/pkg/config"
)

type InitCmd struct {
	Force bool `help:"Overwrite an existing settings file."`
}

func (c *InitCmd) Run(g *Globals) error {
	if _, err := os.Stat(g.Config); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", g.Config)
	}
	if err := config.Save(g.Config, config.Default()); err != nil {
		return err
	}
	log.Printf("Wrote default settings to %s", g.Config)
	return nil
}
