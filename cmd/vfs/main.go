// Command vfs is an interactive shell over a single-file virtual
// filesystem image. It takes exactly one argument, the image path; when
// the file does not exist it offers to create a fresh image of a
// caller-supplied byte size.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	vfs "github.com/Eugenerio/vfs-implementation"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image_file>\n", os.Args[0])
		os.Exit(1)
	}

	imagePath := os.Args[1]
	stdin := bufio.NewReader(os.Stdin)

	img, err := openOrCreate(stdin, imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if img == nil {
		fmt.Println("Exiting...")
		return
	}
	defer img.Close()

	fmt.Println("Virtual disk mounted successfully")
	fmt.Println("Type 'help' for available commands or 'exit' to quit")

	for {
		fmt.Print("> ")

		line, err := stdin.ReadString('\n')
		if err != nil {
			break
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if !executeCommand(img, fields) {
			break
		}
	}

	if err := img.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	fmt.Println("Unmounting disk and exiting...")
}

// openOrCreate mounts the image, creating it first when the file does not
// exist and the user agrees. Returns nil without error when the user
// declines.
func openOrCreate(stdin *bufio.Reader, imagePath string) (*vfs.Image, error) {
	if _, err := os.Stat(imagePath); err == nil {
		return vfs.Open(vfs.WithExistingImagePath(imagePath))
	}

	fmt.Print("Virtual disk file does not exist. Create a new one? (y/n): ")
	answer, err := stdin.ReadString('\n')
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer != "y" && answer != "Y" {
		return nil, nil
	}

	fmt.Print("Enter disk size in bytes: ")
	sizeLine, err := stdin.ReadString('\n')
	if err != nil {
		return nil, err
	}

	size, err := strconv.ParseUint(strings.TrimSpace(sizeLine), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size: %w", err)
	}

	img, err := vfs.Create(vfs.WithImagePath(imagePath), vfs.WithSize(size))
	if err != nil {
		return nil, err
	}

	fmt.Println("Virtual disk created successfully")
	return img, nil
}

// executeCommand dispatches one shell command. Returns false to exit.
func executeCommand(img *vfs.Image, fields []string) bool {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit":
		return false

	case "help":
		printUsage()

	case "clear":
		fmt.Print("\033[2J\033[1;1H")

	case "mkdir":
		if len(args) != 1 {
			fmt.Println("Error: Missing path parameter")
			break
		}
		report(img.CreateDirectory(args[0]), "Directory created successfully")

	case "rmdir":
		if len(args) != 1 {
			fmt.Println("Error: Missing path parameter")
			break
		}
		report(img.RemoveDirectory(args[0]), "Directory removed successfully")

	case "copyto":
		if len(args) != 2 {
			fmt.Println("Error: Missing parameters")
			break
		}
		report(img.CopyToSystem(args[0], args[1]), "File copied successfully")

	case "copyfrom":
		if len(args) != 2 {
			fmt.Println("Error: Missing parameters")
			break
		}
		report(img.CopyFromSystem(args[0], args[1]), "File copied successfully")

	case "ls":
		path := "/"
		if len(args) > 0 {
			path = args[0]
		}
		entries, err := img.ListDirectory(path)
		if err != nil {
			printError(err)
			break
		}
		for _, e := range entries {
			fmt.Printf("%s\t%d\n", e.Name, e.Size)
		}

	case "link":
		if len(args) != 2 {
			fmt.Println("Error: Missing parameters")
			break
		}
		report(img.CreateHardLink(args[0], args[1]), "Link created successfully")

	case "rm":
		if len(args) != 1 {
			fmt.Println("Error: Missing path parameter")
			break
		}
		report(img.RemoveFile(args[0]), "File removed successfully")

	case "append":
		path, n, ok := pathAndCount(args)
		if !ok {
			break
		}
		report(img.AppendToFile(path, n), fmt.Sprintf("Appended %d bytes successfully", n))

	case "truncate":
		path, n, ok := pathAndCount(args)
		if !ok {
			break
		}
		report(img.TruncateFile(path, n), fmt.Sprintf("File truncated by %d bytes successfully", n))

	case "usage":
		used, total := img.DiskUsage()
		free := total - used
		fmt.Println("Disk usage:")
		fmt.Printf("Used: %d blocks (%d bytes)\n", used, used*4096)
		fmt.Printf("Total: %d blocks (%d bytes)\n", total, total*4096)
		fmt.Printf("Free: %d blocks (%d bytes)\n", free, free*4096)
		fmt.Printf("Usage: %.2f%%\n", float64(used)/float64(total)*100)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
	}

	return true
}

// pathAndCount parses the <path> <n> argument pair used by append and
// truncate.
func pathAndCount(args []string) (string, uint32, bool) {
	if len(args) != 2 {
		fmt.Println("Error: Missing or invalid parameters")
		return "", 0, false
	}

	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil || n == 0 {
		fmt.Println("Error: Missing or invalid parameters")
		return "", 0, false
	}

	return args[0], uint32(n), true
}

// report prints the success message or a classified error.
func report(err error, success string) {
	if err != nil {
		printError(err)
		return
	}
	fmt.Println(success)
}

func printError(err error) {
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		fmt.Println("Error: Path not found")
	case errors.Is(err, vfs.ErrNotADirectory):
		fmt.Println("Error: Not a directory")
	case errors.Is(err, vfs.ErrNotAFile):
		fmt.Println("Error: Not a regular file")
	case errors.Is(err, vfs.ErrExists):
		fmt.Println("Error: Entry already exists")
	case errors.Is(err, vfs.ErrNotEmpty):
		fmt.Println("Error: Directory not empty")
	case errors.Is(err, vfs.ErrOutOfBlocks):
		fmt.Println("Error: Out of free blocks")
	case errors.Is(err, vfs.ErrOutOfInodes):
		fmt.Println("Error: Out of free inodes")
	case errors.Is(err, vfs.ErrTooLarge):
		fmt.Println("Error: File too large")
	default:
		fmt.Printf("Error: %v\n", err)
	}
}

func printUsage() {
	fmt.Println("Available commands:")
	fmt.Println("  mkdir <path> - Create a directory")
	fmt.Println("  rmdir <path> - Remove a directory")
	fmt.Println("  copyto <virt_path> <sys_path> - Copy a file from virtual disk to system")
	fmt.Println("  copyfrom <sys_path> <virt_path> - Copy a file from system to virtual disk")
	fmt.Println("  ls <path> - List directory contents")
	fmt.Println("  link <target> <link_path> - Create a hard link")
	fmt.Println("  rm <path> - Remove a file or link")
	fmt.Println("  append <path> <bytes> - Add bytes to a file")
	fmt.Println("  truncate <path> <bytes> - Truncate a file by bytes")
	fmt.Println("  usage - Show disk usage")
	fmt.Println("  clear - Clear the screen")
	fmt.Println("  help - Show this help")
	fmt.Println("  exit - Exit the program")
}
