package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"valet/internal/cli"
)

func main() {
	var (
		subject = flag.String("subject", "", "User id (driver/supervisor/admin) or customer id")
		role    = flag.String("role", "DRIVER", "User role: DRIVER | CUSTOMER | SUPERVISOR | ADMIN")
		phone   = flag.String("phone", "", "Customer phone (CUSTOMER tokens only)")
		secret  = flag.String("secret", os.Getenv("VALET_JWT_SECRET"), "JWT HMAC secret (HS256)")
		ttl     = flag.Duration("ttl", 2*time.Hour, "Token lifetime")
	)
	flag.Parse()

	if *subject == "" || *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: token --subject=<id> --role=DRIVER [--phone=<phone>] --secret='<secret>' [--ttl=2h]")
		os.Exit(2)
	}

	token, claims, err := cli.GenerateToken(*secret, *ttl, *subject, *role, *phone)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	fmt.Println("TOKEN:")
	fmt.Println(token)
	fmt.Println("\nCLAIMS:")
	fmt.Printf("  sub:   %s\n", claims.Subject)
	fmt.Printf("  role:  %s\n", claims.Role)
	if claims.Phone != "" {
		fmt.Printf("  phone: %s\n", claims.Phone)
	}
	fmt.Printf("  iat:   %s\n", claims.IssuedAt.Time.UTC().Format(time.RFC3339))
	fmt.Printf("  exp:   %s\n", claims.ExpiresAt.Time.UTC().Format(time.RFC3339))
}
