package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// collectInputs flattens URL arguments and URL list files into one list.
// An argument ending in .txt that names an existing file is read as a list.
// List files hold one URL per line; blank lines and # comments are ignored.
func collectInputs(args, files []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if strings.HasSuffix(strings.ToLower(arg), ".txt") {
			if info, err := os.Stat(arg); err == nil && !info.IsDir() {
				files = append(files, arg)
				continue
			}
		}
		inputs = append(inputs, arg)
	}
	for _, path := range files {
		lines, err := readURLFile(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, lines...)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no URLs given; pass URLs as arguments or a .txt file with one URL per line")
	}
	return inputs, nil
}

func readURLFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open URL list: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read URL list %s: %w", path, err)
	}
	return urls, nil
}
