package domain

func vehicleSlots() []Slot {
	return []Slot{
		PriceRangeSlot{
			baseSlot: baseSlot{
				key:            "budget",
				priority:       HIGH,
				requiredSearch: true,
				examplePrompt:  "What's your budget for this vehicle?",
				exampleReplies: []string{"Under $20k", "$20k-$40k", "$40k+"},
			},
			Context: PriceContext{Unit: "USD", Scale: 1000},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "body_style",
				priority:       HIGH,
				requiredSearch: false,
				examplePrompt:  "What body style are you looking for, or feel free to share anything else you care about?",
				exampleReplies: []string{"Sedan", "SUV", "Truck", "Hatchback"},
			},
			Allowed: []string{"sedan", "suv", "truck", "hatchback", "coupe", "minivan"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "fuel_type",
				priority:       MEDIUM,
				requiredSearch: false,
				examplePrompt:  "Any fuel type preference, or feel free to share anything else you care about?",
				exampleReplies: []string{"Gas", "Hybrid", "Electric"},
			},
			Allowed: []string{"gas", "hybrid", "electric", "diesel"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "brand",
				priority:       MEDIUM,
				requiredSearch: false,
				examplePrompt:  "Any brands you prefer, or feel free to share anything else you care about?",
				exampleReplies: []string{"Toyota", "Honda", "Ford", "No preference"},
			},
			Allowed: []string{"toyota", "honda", "ford", "tesla", "bmw", "hyundai", "kia", "chevrolet"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "color",
				priority:       LOW,
				requiredSearch: false,
				examplePrompt:  "Any color preference, or feel free to share anything else you care about?",
				exampleReplies: []string{"Black", "White", "Silver", "No preference"},
			},
			Allowed: []string{"black", "white", "silver", "red", "blue", "gray"},
		},
	}
}

func laptopSlots() []Slot {
	return []Slot{
		PriceRangeSlot{
			baseSlot: baseSlot{
				key:            "budget",
				priority:       HIGH,
				requiredSearch: true,
				examplePrompt:  "What's your budget for this laptop?",
				exampleReplies: []string{"Under $800", "$800-$1500", "$1500+"},
			},
			Context: PriceContext{Unit: "USD", Scale: 1},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "use_case",
				priority:       HIGH,
				requiredSearch: true,
				examplePrompt:  "What will you mainly use it for, or feel free to share anything else you care about?",
				exampleReplies: []string{"Gaming", "Work", "Creative work", "Everyday use"},
			},
			Allowed: []string{"gaming", "work", "creative", "everyday", "school"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "gpu_vendor",
				priority:       MEDIUM,
				requiredSearch: false,
				examplePrompt:  "Any GPU preference, or feel free to share anything else you care about?",
				exampleReplies: []string{"NVIDIA", "AMD", "Integrated is fine"},
			},
			Allowed: []string{"nvidia", "amd", "integrated"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "brand",
				priority:       MEDIUM,
				requiredSearch: false,
				examplePrompt:  "Any brand preference, or feel free to share anything else you care about?",
				exampleReplies: []string{"Dell", "Lenovo", "Apple", "No preference"},
			},
			Allowed: []string{"dell", "lenovo", "apple", "asus", "hp", "msi", "acer"},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "screen_size",
				priority:       LOW,
				requiredSearch: false,
				examplePrompt:  "Any screen size preference, or feel free to share anything else you care about?",
				exampleReplies: []string{"13-14 inch", "15-16 inch", "17+ inch"},
			},
			Allowed: []string{"13", "14", "15", "16", "17"},
		},
	}
}

func bookSlots() []Slot {
	return []Slot{
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "genre",
				priority:       HIGH,
				requiredSearch: true,
				examplePrompt:  "What genre are you in the mood for, or feel free to share anything else you care about?",
				exampleReplies: []string{"Mystery", "Sci-fi", "Romance", "Non-fiction"},
			},
			Allowed: []string{"mystery", "sci-fi", "fantasy", "romance", "non-fiction", "biography", "thriller"},
		},
		PriceRangeSlot{
			baseSlot: baseSlot{
				key:            "budget",
				priority:       HIGH,
				requiredSearch: false,
				examplePrompt:  "What's your budget for this book?",
				exampleReplies: []string{"Under $15", "$15-$30", "$30+"},
			},
			Context: PriceContext{Unit: "USD", Scale: 1},
		},
		CategoricalSlot{
			baseSlot: baseSlot{
				key:            "format",
				priority:       MEDIUM,
				requiredSearch: false,
				examplePrompt:  "Paperback, hardcover, or ebook, or feel free to share anything else you care about?",
				exampleReplies: []string{"Paperback", "Hardcover", "Ebook"},
			},
			Allowed: []string{"paperback", "hardcover", "ebook", "audiobook"},
		},
		FreeTextSlot{
			baseSlot: baseSlot{
				key:            "author",
				priority:       LOW,
				requiredSearch: false,
				examplePrompt:  "Any favorite authors, or feel free to share anything else you care about?",
				exampleReplies: []string{"No preference"},
			},
		},
	}
}
