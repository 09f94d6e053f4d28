// Command client registers a user against a running fintrans server, logs
// in and prints the issued token. With -to it also posts one transfer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"

	"github.com/peterbourgon/ff"
)

func main() {
	flags := flag.NewFlagSet("client", flag.ExitOnError)
	var (
		addr     = flags.String("addr", "http://localhost:8080", "server base URL")
		name     = flags.String("name", "testuser", "user to register and log in")
		password = flags.String("password", "testpassword", "password of the user")
		to       = flags.String("to", "", "recipient of a test transfer; empty skips it")
		fromBank = flags.String("from-bank", "", "sender bank name")
		toBank   = flags.String("to-bank", "", "recipient bank name")
		amount   = flags.Int64("amount", 100, "transfer amount")
	)
	if err := ff.Parse(flags, os.Args[1:], ff.WithEnvVarPrefix("FINTRANS_CLIENT")); err != nil {
		log.Fatal(err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatal(err)
	}
	client := &http.Client{Jar: jar}

	credentials := url.Values{"name": {*name}, "password": {*password}}

	// registering twice is fine, the second attempt just reports the duplicate
	body, status := post(client, *addr+"/register", credentials)
	fmt.Println("Register response:", status, body)

	body, status = post(client, *addr+"/login", credentials)
	if status != http.StatusOK {
		log.Fatalf("login failed: %d %s", status, body)
	}
	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal([]byte(body), &token); err != nil {
		log.Fatalf("decoding login response: %v", err)
	}
	fmt.Println("Login response:", token.TokenType, token.AccessToken)

	if *to == "" {
		return
	}
	body, status = post(client, *addr+"/transaction", url.Values{
		"from_user":          {*name},
		"to_user":            {*to},
		"from_bank_name":     {*fromBank},
		"to_bank_name":       {*toBank},
		"from_card_number":   {"4000000000000001"},
		"to_card_number":     {"4000000000000002"},
		"transaction_amount": {strconv.FormatInt(*amount, 10)},
	})
	fmt.Println("Transaction response:", status, body)
}

func post(client *http.Client, target string, form url.Values) (string, int) {
	resp, err := client.PostForm(target, form)
	if err != nil {
		log.Fatalf("POST %s: %v", target, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("reading %s response: %v", target, err)
	}
	return string(b), resp.StatusCode
}
