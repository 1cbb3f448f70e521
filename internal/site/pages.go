package site

func servicePage(path, title, description, heading, lead string, features ...string) Page {
	return Page{
		Path:        path,
		Title:       title,
		Description: description,
		Heading:     heading,
		Lead:        lead,
		Sections: []Section{
			{Heading: "What we deliver", Items: features},
			{
				Heading: "How we work",
				Body:    "Discovery, a fixed-scope build plan, weekly demos and a measured launch. You own the code and the models.",
			},
		},
		Consultation: true,
	}
}

// DefaultPages is the agency's page set.
func DefaultPages() []Page {
	return []Page{
		{
			Path:        "/",
			Title:       "Zerovo Labs | Premium AI-Powered Digital Solutions",
			Description: "AI automation, intelligent web development and custom software for growing businesses.",
			Heading:     "Replace manual work with AI automations",
			Lead:        "We design AI-powered workflows that automate repetitive tasks like internal operations and reporting, saving hours every week.",
			Sections: []Section{
				{
					Heading: "Premium Websites that Build Trust & Convert",
					Body:    "We build high-conversion websites for growing businesses that establish credibility and attract the right clients.",
				},
				{
					Heading: "AI systems for scaling operations",
					Body:    "Solutions designed around your business processes, so you can scale without increasing headcount.",
				},
				{
					Heading: "Services",
					Items: []string{
						"AI Automation Systems",
						"AI-Powered Web Development",
						"Custom AI Solutions",
						"SaaS Product Development",
						"AI Orchestration",
					},
				},
			},
			Consultation: true,
			Nav:          true,
			Label:        "Home",
		},
		{
			Path:        "/about",
			Title:       "About | Zerovo Labs",
			Description: "The team and values behind Zerovo Labs.",
			Heading:     "Built with you, not just for you",
			Lead:        "A small senior team that ships AI products end to end.",
			Sections: []Section{
				{Heading: "Innovation First", Body: "We push boundaries and embrace emerging technologies to deliver solutions that define the future."},
				{Heading: "Results Driven", Body: "Every project is measured by its impact. We're obsessed with delivering tangible business outcomes."},
				{Heading: "Partnership", Body: "We don't just build for you. We build with you, and collaboration is at the heart of everything we do."},
				{Heading: "Excellence", Body: "Mediocrity isn't in our vocabulary. We deliver premium quality in every line of code and pixel."},
			},
			Nav:   true,
			Label: "About",
		},
		{
			Path:        "/services",
			Title:       "Services | Zerovo Labs",
			Description: "AI automation, AI web development, custom AI, SaaS development and AI orchestration.",
			Heading:     "What we build",
			Lead:        "Five practices, one team.",
			Sections: []Section{
				{Heading: "AI Automation Systems", Body: "Streamline operations with autonomous workflows that reduce costs, eliminate errors, and boost efficiency."},
				{Heading: "AI-Powered Web Development", Body: "Intelligent websites and applications that learn, adapt, and deliver personalized experiences at scale."},
				{Heading: "Custom AI Solutions", Body: "Bespoke artificial intelligence tailored to your unique business challenges and goals."},
				{Heading: "SaaS Product Development", Body: "End-to-end development of scalable software-as-a-service platforms built for growth and reliability."},
				{Heading: "AI Orchestration", Body: "Coordinate multiple AI systems seamlessly to create unified, intelligent business solutions."},
			},
			Consultation: true,
			Nav:          true,
			Label:        "Services",
		},
		servicePage(
			"/services/ai-automation",
			"AI Automation Services | Zerovo Labs",
			"Streamline your business with AI Automation Systems. Reduce costs by 60%, eliminate errors, and boost efficiency with autonomous workflows.",
			"AI Automation Systems",
			"Streamline operations with autonomous workflows that reduce costs, eliminate errors, and boost efficiency.",
			"End-to-End Process Automation", "Intelligent Document Processing", "Automated Customer Communications",
			"Predictive Maintenance Systems", "Real-Time Monitoring Dashboards",
		),
		servicePage(
			"/services/ai-web-development",
			"AI-Powered Web Development | Zerovo Labs",
			"Build intelligent websites that adapt. Our AI web development services deliver personalized user experiences, predictive analytics, and 2.5x higher conversions.",
			"AI-Powered Web Development",
			"Intelligent websites and applications that learn, adapt, and deliver personalized experiences at scale.",
			"Dynamic Content Personalization", "Predictive User Experience", "Smart Search & Recommendations",
			"Voice & Chatbot Integration",
		),
		servicePage(
			"/services/custom-ai",
			"Custom AI Solutions | Zerovo Labs",
			"Bespoke artificial intelligence tailored to your business. We build custom ML models, NLP systems, and predictive analytics engines that solve unique challenges.",
			"Custom AI Solutions",
			"Bespoke artificial intelligence tailored precisely to your unique business challenges and strategic goals.",
			"Custom ML Model Development", "Natural Language Processing", "Computer Vision Applications",
			"Predictive Analytics Engine", "Recommendation Systems",
		),
		servicePage(
			"/services/saas-development",
			"SaaS Product Development Services | Zerovo Labs",
			"Launch scalable, cloud-native SaaS platforms with Zerovo Labs. We build secure, multi-tenant applications designed for growth and reliability.",
			"SaaS Product Development",
			"End-to-end development of scalable software-as-a-service platforms built for growth and reliability.",
			"Full-Stack Architecture Design", "Multi-Tenant Infrastructure", "Subscription & Billing Systems",
			"User Management & Authentication", "Analytics & Reporting Tools", "API Development & Documentation",
		),
		servicePage(
			"/services/ai-orchestration",
			"AI Orchestration Services | Zerovo Labs",
			"Coordinate multiple AI systems seamlessly. We build unified ecosystems that connect diverse models, manage workflows, and optimize performance.",
			"AI Orchestration",
			"Coordinate multiple AI systems seamlessly to create unified, intelligent business solutions.",
			"Multi-Model Pipelines", "Workflow Routing", "Cost & Latency Optimization", "Observability for AI Systems",
		),
		{
			Path:        "/projects",
			Title:       "Projects | Zerovo Labs",
			Description: "Selected client work.",
			Heading:     "Selected work",
			Sections: []Section{
				{Heading: "Vagrah Builders Premiere", Body: "A premium real estate presence with lead capture and automated follow-ups."},
				{Heading: "Athern Labs Agency", Body: "An agency site with AI-assisted content workflows."},
			},
			Nav:   true,
			Label: "Projects",
		},
		{
			Path:        "/contact",
			Title:       "Contact | Zerovo Labs",
			Description: "Book a consultation or tell us about your project.",
			Heading:     "Let's talk",
			Lead:        "Book a 30 minute consultation, or tell us about your project.",
			Sections: []Section{
				{Heading: "How long does a typical project take?", Body: "Timelines vary based on complexity. A simple AI integration might take 2-4 weeks, while a full SaaS platform could take 3-6 months."},
				{Heading: "Can you integrate AI into our existing systems?", Body: "Yes. Most engagements start by connecting to the tools you already run."},
			},
			Consultation: true,
			Nav:          true,
			Label:        "Contact",
		},
		{
			Path:        "/locations/hyderabad",
			Title:       "AI Development Company in Hyderabad | Zerovo Labs",
			Description: "Zerovo Labs is Hyderabad's premier AI development agency. We build custom AI solutions, intelligent web apps, and automation systems for local businesses.",
			Heading:     "AI development in Hyderabad",
			Lead:        "Custom AI solutions, intelligent web apps, and automation systems for Hyderabad businesses.",
			Sections: []Section{
				{Heading: "Local team", Body: "On-site workshops across HITEC City, Gachibowli and the wider metro."},
			},
			Consultation: true,
		},
		{
			Path:        "/privacy",
			Title:       "Privacy Policy | Zerovo Labs",
			Description: "How Zerovo Labs handles personal data.",
			Heading:     "Privacy Policy",
			Sections: []Section{
				{Heading: "Data we collect", Body: "Contact details you submit and anonymous widget load timings kept in memory only."},
			},
		},
		{
			Path:        "/terms",
			Title:       "Terms of Service | Zerovo Labs",
			Description: "Terms governing use of the Zerovo Labs website.",
			Heading:     "Terms of Service",
			Sections: []Section{
				{Heading: "Use of this site", Body: "Content is provided for information only and may change without notice."},
			},
		},
	}
}
