package bootstrap

import (
	"fmt"
	"strings"
)

// PrintBootstrapResult displays the bootstrap results in a clean, formatted way
func PrintBootstrapResult(result *AdminBootstrapResult) {
	if result == nil || !result.UserCreated {
		return
	}

	border := strings.Repeat("=", 80)
	fmt.Printf("\n%s\n", border)
	fmt.Println("ADMIN BOOTSTRAP COMPLETED")
	fmt.Printf("%s\n\n", border)

	fmt.Printf("  User ID:  %s\n", result.UserID)
	fmt.Printf("  Username: %s\n", result.Username)
	if result.Email != "" {
		fmt.Printf("  Email:    %s\n", result.Email)
	}

	if result.PasswordFromEnv {
		fmt.Println("\n  Password taken from ADMIN_PASSWORD.")
		fmt.Println("  WARNING: remove ADMIN_PASSWORD from the environment after first login.")
	} else {
		fmt.Printf("\n  Generated password: %s\n", result.Password)
		fmt.Println("  WARNING: this password is shown only once. Change it after first login.")
	}

	fmt.Printf("%s\n\n", border)
}
