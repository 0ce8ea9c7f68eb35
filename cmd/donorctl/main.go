package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"donorlink.org/internal/api"
	"donorlink.org/internal/bloodtype"
	"donorlink.org/internal/config"
	"donorlink.org/internal/keystore"
	"donorlink.org/internal/session"
)

const usage = `donorctl — donorlink command line companion

Usage:
  donorctl login <email>        authenticate and store the session
  donorctl logout               clear the stored session
  donorctl whoami               show the current session state
  donorctl profile              fetch the signed-in donor profile
  donorctl donors [bloodType]   search donors, optionally by blood type
  donorctl compat <bloodType>   show donation compatibility for a type
`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	keys, err := keystore.Open(cfg.StateDir)
	if err != nil {
		log.Fatalf("open keystore: %v", err)
	}
	client, err := api.New(api.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Backend.Timeout,
		RefreshCookieName: cfg.Backend.RefreshCookieName,
	}, keys)
	if err != nil {
		log.Fatalf("backend client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout+5*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "login":
		cmdLogin(ctx, keys, client, os.Args[2:])
	case "logout":
		cmdLogout(ctx, client)
	case "whoami":
		cmdWhoami(ctx, keys, client)
	case "profile":
		cmdProfile(ctx, keys, client)
	case "donors":
		cmdDonors(ctx, keys, client, os.Args[2:])
	case "compat":
		cmdCompat(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

// restore hydrates a session from the keystore the same way the gateway
// does at startup, refreshing the access token if it has expired.
func restore(ctx context.Context, keys *keystore.Store, client *api.Client) session.Snapshot {
	sessions := session.New(keys, client)
	return sessions.Hydrate(ctx)
}

func cmdLogin(ctx context.Context, keys *keystore.Store, client *api.Client, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: donorctl login <email>")
	}
	email := args[0]

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	password = strings.TrimRight(password, "\r\n")

	user, err := login(ctx, keys, client, email, password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	if user == nil {
		fmt.Println("logged in (profile unavailable right now)")
		return
	}
	fmt.Printf("logged in as %s (%s)\n", user.DisplayName, user.Role)
}

// login authenticates and stores the session so later invocations can
// restore it, the same adopt sequence the gateway runs on interactive
// login. A failed profile fetch still leaves a usable token behind.
func login(ctx context.Context, keys *keystore.Store, client *api.Client, email, password string) (*session.User, error) {
	token, err := client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	user, err := client.Profile(ctx, token)
	if err != nil {
		user = nil
	}
	sessions := session.New(keys, client)
	if err := sessions.Adopt(token, user); err != nil {
		return nil, err
	}
	return user, nil
}

func cmdLogout(ctx context.Context, client *api.Client) {
	if err := client.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	fmt.Println("logged out")
}

func cmdWhoami(ctx context.Context, keys *keystore.Store, client *api.Client) {
	snap := restore(ctx, keys, client)
	switch {
	case snap.User != nil:
		fmt.Printf("%s (%s)\n", snap.User.DisplayName, snap.User.Role)
	case snap.AccessToken != "":
		fmt.Println("signed in (profile unavailable)")
	default:
		fmt.Println("guest")
	}
}

func cmdProfile(ctx context.Context, keys *keystore.Store, client *api.Client) {
	snap := restore(ctx, keys, client)
	if snap.AccessToken == "" {
		log.Fatal("not signed in; run: donorctl login <email>")
	}
	user, err := client.Profile(ctx, snap.AccessToken)
	if err != nil {
		log.Fatalf("profile: %v", err)
	}
	fmt.Printf("Name:          %s\n", user.DisplayName)
	fmt.Printf("Role:          %s\n", user.Role)
	fmt.Printf("Email:         %s\n", user.Email)
	if user.BloodType != "" {
		fmt.Printf("Blood type:    %s\n", user.BloodType)
	}
	if user.LastDonation != "" {
		fmt.Printf("Last donation: %s\n", user.LastDonation)
	}
}

func cmdDonors(ctx context.Context, keys *keystore.Store, client *api.Client, args []string) {
	snap := restore(ctx, keys, client)
	if snap.AccessToken == "" {
		log.Fatal("not signed in; run: donorctl login <email>")
	}

	filter := ""
	if len(args) > 0 {
		t, err := bloodtype.Parse(args[0])
		if err != nil {
			log.Fatalf("donors: %v", err)
		}
		filter = string(t)
	}

	donors, err := client.Donors(ctx, snap.AccessToken, filter)
	if err != nil {
		log.Fatalf("donors: %v", err)
	}
	if len(donors) == 0 {
		fmt.Println("no donors found")
		return
	}
	for _, d := range donors {
		fmt.Printf("%-24s %-4s %s\n", d.DisplayName, d.BloodType, d.City)
	}
}

func cmdCompat(args []string) {
	if len(args) != 1 {
		log.Fatal("usage: donorctl compat <bloodType>")
	}
	t, err := bloodtype.Parse(args[0])
	if err != nil {
		log.Fatalf("compat: %v", err)
	}
	fmt.Printf("%s can donate to:   %s\n", t, joinTypes(bloodtype.RecipientsOf(t)))
	fmt.Printf("%s can receive from: %s\n", t, joinTypes(bloodtype.DonorsFor(t)))
}

func joinTypes(types []bloodtype.Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
