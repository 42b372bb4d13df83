package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/0xRadioAc7iv/go-prespec/internal"
	"github.com/0xRadioAc7iv/go-prespec/internal/utils"
	"github.com/0xRadioAc7iv/go-prespec/prespec"
)

func main() {
	host := flag.String("host", internal.DEFAULT_HOST, "lookup server host")
	port := flag.Int("port", internal.DEFAULT_PORT, "lookup server port")
	flag.Parse()

	client, err := prespec.Connect(prespec.WithHost(*host), prespec.WithPort(*port))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	fmt.Printf("Connected to %v:%d\n", *host, *port)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")
	fmt.Println(`Quote keys that contain spaces: lookup "Dictionary<String, Int>"`)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Println("input error:", err)
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		cmd, key, arg, err := utils.SplitStringIntoCommandAndArguments(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		resp, err := client.Execute(cmd, key, arg)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(resp)
	}
}
