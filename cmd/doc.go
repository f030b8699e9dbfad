// # Available Commands
//
//   - serve: Start the server for the site and the encyclopedia
//   - taxonomy: Parse the encyclopedia source and print it
//   - version: Show build information
//
// # Command Examples
//
//	// Serve on all interfaces with eight workers
//	mycoserve serve --host 0.0.0.0 --workers 8
//
//	// Check an edited source, re-printing on every save
//	mycoserve taxonomy --format summary --watch
//
//	// Relocate the whole tree through the environment
//	MYCOSERVE_PATHS_ROOT=/srv/www mycoserve serve
//
// # Configuration
//
// A .mycoserve.yml in the working directory is read when present:
//
//	server:
//	  port: 7878
//	  host: 127.0.0.1
//	  workers: 8
//	domains:
//	  site: localhost:7878
//	  encyclopedia: mycology.localhost:7878
//	paths:
//	  root: /var/www/html
//	logging:
//	  file: rusty_website.log
//	  level: info
//	  format: text
//
// Unset paths are derived from paths.root: data from {root}/data, the
// taxonomy source from {data}/shroom_info.yaml and the images from
// {root}/mycology/Smallimages.
package cmd
