// Command socketctl is an operator console for exercising the socket
// dispatcher directly, the replacement for the teacher's cmd/vhost binary.
package main

import (
	"fmt"
	"os"

	"github.com/kangdazhi/zircon/internal/replio"
)

func main() {
	fmt.Println("socketctl: bidirectional paired-endpoint socket dispatcher console")
	fmt.Println("commands: create write retrywrite read shutdown wctrl rctrl share accept signal signals close ls quit")
	replio.Start(os.Stdin, os.Stdout)
}
