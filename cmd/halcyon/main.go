// halcyon is a server framework for implementing an ActivityPub application.
// Copyright (C) 2026 The Halcyon Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// The halcyon command runs a federated social-network server implementing
// the ActivityPub protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/halcyon-social/halcyon/app"
	"github.com/halcyon-social/halcyon/framework"
	"github.com/halcyon-social/halcyon/framework/config"
	"github.com/halcyon-social/halcyon/pub"
	"github.com/halcyon-social/halcyon/streams"
	"github.com/halcyon-social/halcyon/util"
	"github.com/manifoldco/promptui"
)

var (
	configFlag = flag.String("config", "config.ini", "path to the configuration file")
	addrFlag   = flag.String("addr", ":8443", "listen address")
	debugFlag  = flag.Bool("debug", false, "serve plain HTTP with an http scheme")
)

const usage = `usage: halcyon [flags] <action>

actions:
  init-config  interactively generate the configuration file
  init-db      create the database schema
  new-user     interactively register a local user
  serve        run the server
`

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	var err error
	switch flag.Arg(0) {
	case "init-config":
		err = initConfig(*configFlag)
	case "init-db":
		err = withConfig(func(c *config.Config) error {
			return framework.InitDB(c)
		})
	case "new-user":
		err = withConfig(newUser)
	case "serve":
		err = withConfig(serve)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		util.ErrorLogger.Errorf("%s", err)
		os.Exit(1)
	}
}

func withConfig(fn func(*config.Config) error) error {
	c, err := config.Load(*configFlag)
	if err != nil {
		return err
	}
	return fn(c)
}

// initConfig walks through the handful of required values and writes a
// commented configuration file the admin can edit further.
func initConfig(path string) error {
	c := config.Defaults()
	host, err := (&promptui.Prompt{
		Label: "Host with TLD for this instance",
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("host must not be empty")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}
	c.ServerConfig.Host = host

	_, kind, err := (&promptui.Select{
		Label: "Database kind",
		Items: []string{"sqlite", "postgres"},
	}).Run()
	if err != nil {
		return err
	}
	c.DatabaseConfig.DatabaseKind = kind
	if kind == "postgres" {
		dbName, err := (&promptui.Prompt{Label: "Postgres database name"}).Run()
		if err != nil {
			return err
		}
		dbUser, err := (&promptui.Prompt{Label: "Postgres user"}).Run()
		if err != nil {
			return err
		}
		c.DatabaseConfig.PostgresConfig.DatabaseName = dbName
		c.DatabaseConfig.PostgresConfig.UserName = dbUser
	} else {
		dbPath, err := (&promptui.Prompt{Label: "Sqlite database path", Default: "halcyon.db"}).Run()
		if err != nil {
			return err
		}
		c.DatabaseConfig.SqliteConfig.DatabasePath = dbPath
	}
	if err := c.Save(path); err != nil {
		return err
	}
	util.InfoLogger.Infof("wrote %s", path)
	return nil
}

func newUser(c *config.Config) error {
	f, err := framework.Build(c, newServerApp(), *debugFlag)
	if err != nil {
		return err
	}
	defer f.Stop()
	nickname, err := (&promptui.Prompt{
		Label: "Nickname",
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("nickname must not be empty")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}
	email, err := (&promptui.Prompt{Label: "Email"}).Run()
	if err != nil {
		return err
	}
	u, err := f.Users.CreateUser(util.Context{Context: context.Background()}, nickname, email)
	if err != nil {
		return err
	}
	util.InfoLogger.Infof("created user %s (%s)", u.Nickname, u.ActorIRI)
	return nil
}

func serve(c *config.Config) error {
	f, err := framework.Build(c, newServerApp(), *debugFlag)
	if err != nil {
		return err
	}
	return f.Serve(*addrFlag)
}

// serverApp is the stock application: no extra side effects, automatic
// follow acceptance, and no token scheme wired in; C2S submissions stay
// unauthenticated until the embedding application supplies CurrentUser.
type serverApp struct{}

func newServerApp() *serverApp { return &serverApp{} }

var _ app.S2SApplication = &serverApp{}
var _ app.C2SApplication = &serverApp{}

func (s *serverApp) Software() app.Software {
	return app.Software{Name: "halcyon", MajorVersion: 0, MinorVersion: 1}
}

func (s *serverApp) CurrentUser(c context.Context, r *http.Request) (*app.CurrentUser, error) {
	return nil, nil
}

func (s *serverApp) DefaultCallback(c context.Context, activity *streams.Activity) error {
	util.InfoLogger.Infof("nothing to do for activity of type %q: %s", activity.Type, activity.ID)
	return nil
}

func (s *serverApp) PostInboxRequestBodyHook(c context.Context, r *http.Request, activity *streams.Activity) (context.Context, error) {
	return c, nil
}

func (s *serverApp) OnFollow(c context.Context) pub.OnFollowBehavior {
	return pub.OnFollowAutomaticallyAccept
}

func (s *serverApp) ApplyFederatingCallbacks(fwc *pub.FederatingWrappedCallbacks) pub.TypeHandlers {
	return nil
}

func (s *serverApp) PostOutboxRequestBodyHook(c context.Context, r *http.Request, data streams.Item) (context.Context, error) {
	return c, nil
}

func (s *serverApp) ScopePermitsPrivateGetInbox(c context.Context, u *app.CurrentUser, owner *url.URL) bool {
	return u != nil && u.ActorIRI != nil && u.ActorIRI.String() == owner.String()
}

func (s *serverApp) ScopePermitsPrivateGetOutbox(c context.Context, u *app.CurrentUser, owner *url.URL) bool {
	return u != nil && u.ActorIRI != nil && u.ActorIRI.String() == owner.String()
}

func (s *serverApp) ApplySocialCallbacks(swc *pub.SocialWrappedCallbacks) pub.TypeHandlers {
	return nil
}
