package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-slotkv/internal/config"
	"github.com/0xRadioAc7iv/go-slotkv/internal/logging"
	"github.com/0xRadioAc7iv/go-slotkv/internal/utils"
	"github.com/0xRadioAc7iv/go-slotkv/slotkv"
)

func main() {
	host := flag.String("host", config.DefaultHost, "slotkv server host")
	port := flag.Int("port", config.DefaultPort, "slotkv server port")
	flag.Parse()

	logger, err := logging.NewConsole("info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	client, err := slotkv.Connect(slotkv.WithHost(*host), slotkv.WithPort(*port))
	if err != nil {
		logger.Fatal("could not connect", zap.Error(err))
	}
	defer client.Close()

	fmt.Printf("Connected to %v:%d\n", *host, *port)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("input error:", err)
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		cmd, key, value, ttl, err := utils.SplitStringIntoCommandAndArguments(line)
		if err != nil {
			if !errors.Is(err, utils.ErrEmptyLine) {
				fmt.Println("parse error:", err)
			}
			continue
		}

		resp, err := client.Execute(cmd, key, value, ttl)
		if err != nil {
			logger.Fatal("connection lost", zap.Error(err))
		}

		fmt.Println(resp)
	}
}
